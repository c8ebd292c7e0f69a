// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the durable dedup-key store used to
// reject re-delivered inbound events. Uniqueness on the key column is the
// cross-instance concurrency primitive: a failed insert means another
// handler, possibly in another process, already saw this delivery.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/domain"
)

// InsertDedupKey records the first sighting of key with the given retention.
// It returns ErrDuplicate when a live row already exists. An expired row left
// behind between GC sweeps is refreshed in place and treated as a first
// sighting; the conditional UPDATE keeps that takeover atomic against
// concurrent refreshers.
func InsertDedupKey(ctx context.Context, db *gorm.DB, key string, retention time.Duration) error {
	now := time.Now().UTC()
	rec := &domain.DedupKey{
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(retention),
	}
	err := db.WithContext(ctx).Create(rec).Error
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}

	res := db.WithContext(ctx).
		Model(&domain.DedupKey{}).
		Where("key = ? AND expires_at <= ?", key, now).
		Updates(map[string]any{
			"created_at": now,
			"expires_at": now.Add(retention),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil // stale row reclaimed; this delivery counts as new
	}
	return ErrDuplicate
}

// PurgeExpiredDedupKeys deletes rows whose retention window has passed and
// returns the number removed. Run periodically; correctness does not depend
// on it because InsertDedupKey reclaims expired rows itself.
func PurgeExpiredDedupKeys(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.DedupKey{})
	return res.RowsAffected, res.Error
}
