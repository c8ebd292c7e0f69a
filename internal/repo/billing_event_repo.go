// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the billing-event lock: the unique
// insert that guarantees each processor notification's side effects run at
// most once across every server instance.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/domain"
)

// ClaimBillingEvent attempts to take the durable lock for eventID. It returns
// isNew=false when the event was already claimed, in which case the caller
// must skip all side effects and still acknowledge success to the processor.
// Claims are keyed strictly on the event id, never the subscription id, so
// sequential events for one subscription are each processed.
func ClaimBillingEvent(ctx context.Context, db *gorm.DB, eventID, eventType string) (bool, error) {
	rec := &domain.BillingEvent{
		EventID:    eventID,
		Type:       eventType,
		ReceivedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).Create(rec).Error
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

// MarkBillingEventDone stamps processed_at once the event's effects have all
// run. A claimed row that never gets stamped stays locked; replaying it
// requires manual intervention, which is preferred over a duplicate plan
// activation.
func MarkBillingEventDone(ctx context.Context, db *gorm.DB, eventID string) error {
	res := db.WithContext(ctx).
		Model(&domain.BillingEvent{}).
		Where("event_id = ?", eventID).
		Update("processed_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBillingEvent fetches a claimed event row, mainly for tests and audits.
func GetBillingEvent(ctx context.Context, db *gorm.DB, eventID string) (*domain.BillingEvent, error) {
	var rec domain.BillingEvent
	err := db.WithContext(ctx).Where("event_id = ?", eventID).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
