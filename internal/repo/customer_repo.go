// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Customer
// model.
//
// All functions are context-aware and accept a *gorm.DB handle. They follow
// the "thin repository" approach: no business logic, only persistence and
// query composition. The find-or-create decision lives in the services layer.
//
// Error semantics:
//   - When a customer is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// FindCustomerByIdentity returns the first customer whose channel identity
// column (wa_id or ig_id) equals sourceID. It returns ErrNotFound when none
// exists.
func FindCustomerByIdentity(ctx context.Context, db *gorm.DB, channel domain.Channel, sourceID string) (*domain.Customer, error) {
	col := channel.IdentityColumn()
	if col == "" {
		return nil, fmt.Errorf("unsupported channel %q", channel)
	}
	var out []domain.Customer
	err := db.WithContext(ctx).
		Where(col+" = ?", sourceID).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// CreateCustomer inserts a customer for (channel, sourceID). An empty name is
// replaced by domain.DefaultCustomerName.
func CreateCustomer(ctx context.Context, db *gorm.DB, channel domain.Channel, sourceID, name string, now time.Time) (*domain.Customer, error) {
	if name == "" {
		name = domain.DefaultCustomerName
	}
	c := &domain.Customer{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now.UTC(),
	}
	id := sourceID
	switch channel {
	case domain.ChannelWhatsApp:
		c.WaID = &id
	case domain.ChannelInstagram:
		c.IgID = &id
	default:
		return nil, fmt.Errorf("unsupported channel %q", channel)
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}
