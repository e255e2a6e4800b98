// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Delivery
// model used to suppress provider redeliveries when de-duplication is on, and
// to remember operator replies sent under an Idempotency-Key.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
)

// ErrDuplicate indicates that a live delivery record already exists for the
// given (channel, meta_msg_id) pair.
var ErrDuplicate = errors.New("duplicate")

// ClaimDelivery records (channel, metaMsgID) as seen until now+ttl. Expired
// claims for the same pair are removed first. It returns ErrDuplicate when a
// live claim exists.
func ClaimDelivery(ctx context.Context, db *gorm.DB, channel, metaMsgID string, ttl time.Duration, now time.Time) (*domain.Delivery, error) {
	now = now.UTC()
	if err := db.WithContext(ctx).
		Where("channel = ? AND meta_msg_id = ? AND expires_at <= ?", channel, metaMsgID, now).
		Delete(&domain.Delivery{}).Error; err != nil {
		return nil, err
	}

	rec := &domain.Delivery{
		ID:        uuid.NewString(),
		Channel:   channel,
		MetaMsgID: metaMsgID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// DeliveryExists reports whether a live claim exists for (channel, key) at now.
func DeliveryExists(ctx context.Context, db *gorm.DB, channel, key string, now time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Delivery{}).
		Where("channel = ? AND meta_msg_id = ? AND expires_at > ?", channel, key, now.UTC()).
		Count(&n).Error
	return n > 0, err
}

// ReleaseDelivery removes a claim so a failed ingestion can be retried by
// the provider's next redelivery.
func ReleaseDelivery(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Delivery{}).Error
}

// PurgeExpiredDeliveries deletes claims whose expiry is at or before now and
// returns how many rows were removed.
func PurgeExpiredDeliveries(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.Delivery{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite and pgx often surface UNIQUE violations as plain text.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
