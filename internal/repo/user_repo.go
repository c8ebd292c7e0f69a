// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the User model,
// including the atomic primitives the pipeline relies on: the conditional
// pending-action swap and the guarded daily-counter increment.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/domain"
)

// UpsertUser returns the user row for identity, creating it on first contact.
func UpsertUser(ctx context.Context, db *gorm.DB, identity string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where(domain.User{Identity: identity}).
		Attrs(domain.User{Plan: domain.PlanFree}).
		FirstOrCreate(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user by identity or returns ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, identity string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("identity = ?", identity).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// PatchUser applies a partial field update to the user row. Callers pass
// column names, not struct fields, so zero values update as expected.
func PatchUser(ctx context.Context, db *gorm.DB, identity string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("identity = ?", identity).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserBySubscription resolves the user mirroring a billing subscription.
func GetUserBySubscription(ctx context.Context, db *gorm.DB, subscriptionID string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SwapPendingAction transitions the conversation state with a compare-and-swap:
// the update only lands when the stored pending_action still equals expect.
// Payload always moves together with the action, so a cleared action can never
// leave a stale payload behind. Returns false when another writer got there
// first.
func SwapPendingAction(ctx context.Context, db *gorm.DB, identity, expect, next, payload string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("identity = ? AND pending_action = ?", identity, expect).
		Updates(map[string]any{
			"pending_action":  next,
			"pending_payload": payload,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClearPendingAction unconditionally resets the conversation state to idle,
// discarding any payload.
func ClearPendingAction(ctx context.Context, db *gorm.DB, identity string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("identity = ?", identity).
		Updates(map[string]any{
			"pending_action":  "",
			"pending_payload": "",
		}).Error
}

// RollUsageDay resets the daily counter when the stored day is stale. The
// WHERE clause makes the roll a no-op for concurrent callers that already
// moved the row to the current day.
func RollUsageDay(ctx context.Context, db *gorm.DB, identity, day string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("identity = ? AND daily_count_day <> ?", identity, day).
		Updates(map[string]any{
			"daily_count":     0,
			"daily_count_day": day,
		}).Error
}

// IncrementDailyCount bumps the usage counter atomically in SQL rather than
// read-modify-write, guarded by the day so a roll racing the increment cannot
// resurrect a stale count. Returns the post-increment value.
func IncrementDailyCount(ctx context.Context, db *gorm.DB, identity, day string) (int, error) {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("identity = ? AND daily_count_day = ?", identity, day).
		Update("daily_count", gorm.Expr("daily_count + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	u, err := GetUser(ctx, db, identity)
	if err != nil {
		return 0, err
	}
	return u.DailyCount, nil
}

// ActivateTrial grants a time-boxed pro trial and stores the business profile
// captured by the signup flow.
func ActivateTrial(ctx context.Context, db *gorm.DB, identity, businessName, cycle string, until time.Time) error {
	return PatchUser(ctx, db, identity, map[string]any{
		"plan":          domain.PlanPro,
		"plan_source":   domain.PlanSourceTrial,
		"plan_until":    until,
		"business_name": businessName,
		"billing_cycle": cycle,
	})
}
