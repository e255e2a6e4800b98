package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// UpstreamError is a non-2xx answer from the Graph API. Body is the raw
// response, usually an {"error":{"message","code",...}} envelope.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("graph api error (status %d): %s", e.StatusCode, e.Detail())
}

// Detail extracts a human readable message from the provider envelope as
// "(#code) message", falling back to the raw body, then the status text.
func (e *UpstreamError) Detail() string {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &env); err == nil && env.Error.Message != "" {
		if env.Error.Code != 0 {
			return fmt.Sprintf("(#%d) %s", env.Error.Code, env.Error.Message)
		}
		return env.Error.Message
	}
	if b := strings.TrimSpace(e.Body); b != "" {
		return b
	}
	return http.StatusText(e.StatusCode)
}

// NetworkError wraps a transport failure (DNS, refused connection, timeout,
// cancelled context).
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return "graph api network error: " + e.Cause.Error()
}

func (e *NetworkError) Unwrap() error { return e.Cause }
