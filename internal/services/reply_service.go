// Package services – ReplyService
//
// This file implements the outbound dispatcher. An operator reply targets
// either a comment (answered through the comment replies endpoint) or a
// direct message thread (answered through the messages endpoint). The
// required identifier is validated before any network call.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
	"github.com/tbourn/go-helpdesk-webhook/internal/provider"
	"github.com/tbourn/go-helpdesk-webhook/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sender performs the provider calls. *provider.GraphClient implements it.
type Sender interface {
	SendDirectMessage(ctx context.Context, recipientID, text string) (provider.Response, error)
	ReplyToComment(ctx context.Context, commentID, text string) (provider.Response, error)
}

// ReplyRequest is an operator's reply command. MessageType "comment" targets
// CommentID; any other value is a direct message to RecipientID.
type ReplyRequest struct {
	MessageType string `json:"message_type"`
	CommentID   string `json:"comment_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Text        string `json:"text"`
}

// Kind returns the normalized reply kind, domain.MessageTypeComment or
// domain.MessageTypeDM.
func (r ReplyRequest) Kind() string {
	if r.MessageType == domain.MessageTypeComment {
		return domain.MessageTypeComment
	}
	return domain.MessageTypeDM
}

// ReplyService dispatches operator replies to the provider.
//
// When DB is set, replies sent under an Idempotency-Key are remembered for
// KeyTTL so a retried request can be recognized (see Seen and Remember).
type ReplyService struct {
	Sender Sender

	DB     *gorm.DB
	KeyTTL time.Duration
}

// Seen reports whether a reply was already sent under key.
func (s *ReplyService) Seen(ctx context.Context, key string, now time.Time) (bool, error) {
	if s.DB == nil || key == "" {
		return false, nil
	}
	return repo.DeliveryExists(ctx, s.DB, domain.ReplyKeyScope, key, now)
}

// Remember records key as used by a successful reply. A concurrent request
// that already recorded the key is not an error.
func (s *ReplyService) Remember(ctx context.Context, key string) error {
	if s.DB == nil || key == "" {
		return nil
	}
	ttl := s.KeyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.ClaimDelivery(ctx, s.DB, domain.ReplyKeyScope, key, ttl, time.Now())
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Send validates req and performs exactly one provider call. A blank Text
// fails with ErrEmptyText and a missing target with *MissingTargetError,
// neither of which reaches the provider.
func (s *ReplyService) Send(ctx context.Context, req ReplyRequest) (provider.Response, error) {
	kind := req.Kind()
	tr := otel.Tracer("services/ReplyService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(attribute.String("reply.kind", kind)),
	)
	defer span.End()

	var (
		resp provider.Response
		err  error
	)
	switch {
	case strings.TrimSpace(req.Text) == "":
		err = ErrEmptyText
	case kind == domain.MessageTypeComment:
		if strings.TrimSpace(req.CommentID) == "" {
			err = &MissingTargetError{Field: "comment_id"}
			break
		}
		resp, err = s.Sender.ReplyToComment(ctx, req.CommentID, req.Text)
	default:
		if strings.TrimSpace(req.RecipientID) == "" {
			err = &MissingTargetError{Field: "recipient_id"}
			break
		}
		resp, err = s.Sender.SendDirectMessage(ctx, req.RecipientID, req.Text)
	}

	outboundReplies.WithLabelValues(kind, outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		loggerFrom(ctx).Warn().Err(err).Str("kind", kind).Msg("reply dispatch failed")
		return nil, err
	}
	loggerFrom(ctx).Info().Str("kind", kind).Msg("reply dispatched")
	return resp, nil
}

func outcome(err error) string {
	var (
		missing *MissingTargetError
		up      *provider.UpstreamError
		ne      *provider.NetworkError
	)
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, ErrEmptyText), errors.As(err, &missing):
		return "invalid"
	case errors.As(err, &up):
		return "upstream_error"
	case errors.As(err, &ne):
		return "network_error"
	}
	return "error"
}
