// Package services defines the business logic for inbound webhook ingestion,
// conversation threading, and outbound replies. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrForbiddenVerification is returned when the webhook subscription
	// handshake carries a wrong mode or verify token.
	ErrForbiddenVerification = errors.New("forbidden")

	// ErrConversationNotFound indicates that the requested conversation does
	// not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrEmptyText is returned by the reply dispatcher when the reply body is
	// blank. Both reply entry points share it.
	ErrEmptyText = errors.New("reply text is empty")
)

// MissingTargetError is returned by the reply dispatcher when the identifier
// required by the chosen message kind is absent. Field names the missing
// request field ("comment_id" or "recipient_id").
type MissingTargetError struct {
	Field string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("missing required field %q for this message type", e.Field)
}
