// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for Debt rows.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/domain"
)

// CreateDebt logs a new open debt for the given client.
func CreateDebt(ctx context.Context, db *gorm.DB, userID, clientID string, amount float64, note string) (*domain.Debt, error) {
	d := &domain.Debt{
		ID:       uuid.NewString(),
		UserID:   userID,
		ClientID: clientID,
		Amount:   amount,
		Note:     note,
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// ListOpenDebts returns the owner's unpaid debts, newest first, with the
// client association preloaded for display.
func ListOpenDebts(ctx context.Context, db *gorm.DB, userID string) ([]domain.Debt, error) {
	var out []domain.Debt
	err := db.WithContext(ctx).
		Preload("Client").
		Where("user_id = ? AND paid = ?", userID, false).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListOpenDebtsByAge returns unpaid debts oldest first; age is the
// prioritization signal for who to chase.
func ListOpenDebtsByAge(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Debt, error) {
	var out []domain.Debt
	q := db.WithContext(ctx).
		Preload("Client").
		Where("user_id = ? AND paid = ?", userID, false).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// OpenDebtTotal sums the client's unpaid debts and reports how many there are.
func OpenDebtTotal(ctx context.Context, db *gorm.DB, userID, clientID string) (float64, int64, error) {
	var total float64
	var count int64
	if err := db.WithContext(ctx).
		Model(&domain.Debt{}).
		Where("user_id = ? AND client_id = ? AND paid = ?", userID, clientID, false).
		Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}
	err := db.WithContext(ctx).
		Model(&domain.Debt{}).
		Where("user_id = ? AND client_id = ? AND paid = ?", userID, clientID, false).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, count, err
}

// MarkDebtsPaid settles every open debt for the client and returns how many
// rows were closed.
func MarkDebtsPaid(ctx context.Context, db *gorm.DB, userID, clientID string) (int64, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Debt{}).
		Where("user_id = ? AND client_id = ? AND paid = ?", userID, clientID, false).
		Updates(map[string]any{"paid": true, "paid_at": now})
	return res.RowsAffected, res.Error
}
