// Package services – InboxService
//
// This file implements InboxService, which turns provider webhook deliveries
// into customers, conversations and messages. For every normalized event it
// resolves the customer by channel identity, applies the threading policy
// (one conversation per comment, one open DM conversation per customer) and
// appends an incoming message.
//
// Find-or-create is read-then-write without a transaction or unique index:
// two concurrent deliveries for an unseen identity may both create a
// customer or an open DM conversation. This race is known and accepted.
//
// Observability: public methods are OpenTelemetry-instrumented and feed the
// helpdesk_inbound_* Prometheus counters.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
	"github.com/tbourn/go-helpdesk-webhook/internal/repo"
	"github.com/tbourn/go-helpdesk-webhook/internal/webhook"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DedupOptions enables suppression of provider redeliveries by meta_msg_id.
type DedupOptions struct {
	Enabled bool
	TTL     time.Duration
}

// InboxService ingests inbound webhook events.
type InboxService struct {
	DB    *gorm.DB
	Dedup DedupOptions

	// Now returns the server time stamped on new rows; defaults to time.Now.
	Now func() time.Time
}

// IngestResult summarizes one delivery.
type IngestResult struct {
	Persisted  int
	Duplicates int
}

func (s *InboxService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Ingest normalizes p and persists every event it yields, in payload order.
// The first failing event aborts the delivery; events already persisted are
// kept.
func (s *InboxService) Ingest(ctx context.Context, p *webhook.Payload) (IngestResult, error) {
	tr := otel.Tracer("services/InboxService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(attribute.String("webhook.object", p.Object)),
	)
	defer span.End()

	lg := loggerFrom(ctx)
	onDrop := func(reason string) {
		inboundDropped.WithLabelValues(reason).Inc()
		lg.Debug().Str("object", p.Object).Str("reason", reason).Msg("webhook element skipped")
	}

	var res IngestResult
	for ev := range webhook.Events(p, onDrop) {
		dup, err := s.ingestOne(ctx, ev)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}
		if dup {
			res.Duplicates++
			continue
		}
		res.Persisted++
	}
	span.SetAttributes(
		attribute.Int("events.persisted", res.Persisted),
		attribute.Int("events.duplicates", res.Duplicates),
	)
	return res, nil
}

func (s *InboxService) ingestOne(ctx context.Context, ev domain.InboundEvent) (duplicate bool, err error) {
	var claim *domain.Delivery
	if s.Dedup.Enabled && ev.MetaMsgID != "" {
		claim, err = repo.ClaimDelivery(ctx, s.DB, string(ev.SourceType), ev.MetaMsgID, s.Dedup.TTL, s.now())
		if errors.Is(err, repo.ErrDuplicate) {
			inboundDropped.WithLabelValues("duplicate").Inc()
			loggerFrom(ctx).Info().
				Str("channel", string(ev.SourceType)).
				Str("meta_msg_id", ev.MetaMsgID).
				Msg("duplicate delivery skipped")
			return true, nil
		}
		if err != nil {
			return false, fmt.Errorf("claim delivery: %w", err)
		}
	}

	cust, conv, err := s.Resolve(ctx, ev)
	if err == nil {
		_, err = s.Persist(ctx, cust, conv, ev)
	}
	if err != nil {
		if claim != nil {
			// Let the provider's retry through.
			if rerr := repo.ReleaseDelivery(ctx, s.DB, claim.ID); rerr != nil {
				loggerFrom(ctx).Warn().Err(rerr).
					Str("channel", string(ev.SourceType)).
					Str("meta_msg_id", ev.MetaMsgID).
					Msg("dedup claim not released; redeliveries skipped until it expires")
			}
		}
		return false, err
	}
	return false, nil
}

// Resolve finds or creates the customer for ev, then finds, bumps or creates
// the conversation according to the event's threading policy.
func (s *InboxService) Resolve(ctx context.Context, ev domain.InboundEvent) (*domain.Customer, *domain.Conversation, error) {
	tr := otel.Tracer("services/InboxService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("channel", string(ev.SourceType)),
			attribute.String("message_type", ev.MessageType),
		),
	)
	defer span.End()

	if !ev.Valid() {
		return nil, nil, fmt.Errorf("invalid inbound event from %q", ev.SourceType)
	}

	cust, err := s.resolveCustomer(ctx, ev)
	if err != nil {
		return nil, nil, err
	}

	var conv *domain.Conversation
	if ev.IsComment() {
		conv, err = s.resolveCommentThread(ctx, cust, ev)
	} else {
		conv, err = s.resolveDMThread(ctx, cust, ev)
	}
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(
		attribute.String("customer.id", cust.ID),
		attribute.String("conversation.id", conv.ID),
	)
	return cust, conv, nil
}

func (s *InboxService) resolveCustomer(ctx context.Context, ev domain.InboundEvent) (*domain.Customer, error) {
	cust, err := repo.FindCustomerByIdentity(ctx, s.DB, ev.SourceType, ev.SourceID)
	if err == nil {
		return cust, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	cust, err = repo.CreateCustomer(ctx, s.DB, ev.SourceType, ev.SourceID, ev.Name, s.now())
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	loggerFrom(ctx).Info().
		Str("channel", string(ev.SourceType)).
		Str("customer_id", cust.ID).
		Msg("customer created")
	return cust, nil
}

func (s *InboxService) resolveCommentThread(ctx context.Context, cust *domain.Customer, ev domain.InboundEvent) (*domain.Conversation, error) {
	conv, err := repo.FindConversationByComment(ctx, s.DB, ev.CommentID)
	switch {
	case err == nil:
		return conv, s.touch(ctx, conv)
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("find comment conversation: %w", err)
	}

	commentID := ev.CommentID
	conv = &domain.Conversation{
		CustomerID:    cust.ID,
		ChannelSource: ev.SourceType,
		MessageType:   domain.MessageTypeComment,
		CommentID:     &commentID,
	}
	if ev.PostID != "" {
		postID := ev.PostID
		conv.PostID = &postID
	}
	if err := repo.CreateConversation(ctx, s.DB, conv, s.now()); err != nil {
		return nil, fmt.Errorf("create comment conversation: %w", err)
	}
	return conv, nil
}

func (s *InboxService) resolveDMThread(ctx context.Context, cust *domain.Customer, ev domain.InboundEvent) (*domain.Conversation, error) {
	conv, err := repo.FindOpenDMConversation(ctx, s.DB, cust.ID)
	switch {
	case err == nil:
		return conv, s.touch(ctx, conv)
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("find open dm conversation: %w", err)
	}

	conv = &domain.Conversation{
		CustomerID:    cust.ID,
		ChannelSource: ev.SourceType,
		MessageType:   domain.MessageTypeDM,
	}
	if err := repo.CreateConversation(ctx, s.DB, conv, s.now()); err != nil {
		return nil, fmt.Errorf("create dm conversation: %w", err)
	}
	return conv, nil
}

func (s *InboxService) touch(ctx context.Context, conv *domain.Conversation) error {
	now := s.now()
	if err := repo.TouchConversation(ctx, s.DB, conv.ID, now); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	conv.UpdatedAt = now
	return nil
}

// Persist appends ev to conv as an incoming message.
func (s *InboxService) Persist(ctx context.Context, cust *domain.Customer, conv *domain.Conversation, ev domain.InboundEvent) (*domain.Message, error) {
	tr := otel.Tracer("services/InboxService")
	ctx, span := tr.Start(ctx, "Persist",
		trace.WithAttributes(attribute.String("conversation.id", conv.ID)),
	)
	defer span.End()

	msg, err := repo.CreateMessage(ctx, s.DB, conv.ID, cust.ID, ev.Text, ev.MetaMsgID, conv.CommentID, s.now())
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	inboundEvents.WithLabelValues(string(ev.SourceType), ev.MessageType).Inc()
	loggerFrom(ctx).Info().
		Str("channel", string(ev.SourceType)).
		Str("customer_id", cust.ID).
		Str("conversation_id", conv.ID).
		Str("meta_msg_id", ev.MetaMsgID).
		Msg("message stored")
	return msg, nil
}

// loggerFrom returns the request logger carried by ctx, or the global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
