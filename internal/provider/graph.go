// Package provider is the outbound client for the Meta Graph API. It sends
// Instagram/Messenger direct messages and replies to Instagram comments.
//
// Each call is a single attempt: there is no retry or backoff. Failures are
// reported as *UpstreamError (non-2xx) or *NetworkError (transport).
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Response is the provider's parsed JSON response body.
type Response map[string]any

// Options configures a GraphClient.
type Options struct {
	BaseURL     string        // e.g. https://graph.facebook.com
	Version     string        // e.g. v19.0
	AccessToken string        // sent as the access_token query parameter
	Timeout     time.Duration // 0 disables the client-side timeout
}

// GraphClient calls the two Graph API endpoints used for replies.
type GraphClient struct {
	http    *resty.Client
	version string
}

// NewGraphClient builds a client. An empty access token is accepted so the
// service can start without outbound credentials; the provider then rejects
// the calls.
func NewGraphClient(opts Options) (*GraphClient, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("graph base URL cannot be empty")
	}
	if opts.Version == "" {
		return nil, errors.New("graph API version cannot be empty")
	}
	if opts.AccessToken == "" {
		log.Warn().Msg("META_ACCESS_TOKEN is empty; outbound replies will be rejected by the provider")
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetQueryParam("access_token", opts.AccessToken).
		SetTimeout(opts.Timeout)

	log.Info().Str("baseURL", opts.BaseURL).Str("version", opts.Version).Msg("Graph API client configured")

	return &GraphClient{http: c, version: opts.Version}, nil
}

type dmRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// SendDirectMessage posts text to recipientID via /{version}/me/messages.
func (c *GraphClient) SendDirectMessage(ctx context.Context, recipientID, text string) (Response, error) {
	var body dmRequest
	body.Recipient.ID = recipientID
	body.Message.Text = text
	return c.post(ctx, "/"+c.version+"/me/messages", body)
}

// ReplyToComment posts text as a reply via /{version}/{commentID}/replies.
func (c *GraphClient) ReplyToComment(ctx context.Context, commentID, text string) (Response, error) {
	body := map[string]string{"message": text}
	return c.post(ctx, "/"+c.version+"/"+url.PathEscape(commentID)+"/replies", body)
}

func (c *GraphClient) post(ctx context.Context, path string, body any) (Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := req.Post(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Graph API request failed")
		return nil, &NetworkError{Cause: err}
	}

	raw := resp.Body()
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		log.Error().Str("path", path).Int("statusCode", resp.StatusCode()).Str("responseBody", string(raw)).Msg("Graph API returned an error")
		return nil, &UpstreamError{StatusCode: resp.StatusCode(), Body: string(raw)}
	}

	out := Response{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode graph response: %w", err)
	}
	return out, nil
}
