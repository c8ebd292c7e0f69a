// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for Client rows
// (debtor contacts). Names are keyed case-insensitively per owner.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/domain"
)

// nameKey normalizes a client name for case-insensitive matching.
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetClientByName fetches the owner's client with the given name
// (case-insensitive) or returns ErrNotFound.
func GetClientByName(ctx context.Context, db *gorm.DB, userID, name string) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).
		Where("user_id = ? AND name_key = ?", userID, nameKey(name)).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertClient returns the owner's client with the given name, creating it on
// first mention. A concurrent create racing on the unique (user, name) index
// falls back to the existing row.
func UpsertClient(ctx context.Context, db *gorm.DB, userID, name string) (*domain.Client, error) {
	if c, err := GetClientByName(ctx, db, userID, name); err == nil {
		return c, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	c := &domain.Client{
		ID:      uuid.NewString(),
		UserID:  userID,
		Name:    strings.TrimSpace(name),
		NameKey: nameKey(name),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return GetClientByName(ctx, db, userID, name)
		}
		return nil, err
	}
	return c, nil
}

// SetClientPhone stores or replaces the contact phone for a client.
func SetClientPhone(ctx context.Context, db *gorm.DB, userID, clientID, phone string) error {
	res := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ? AND user_id = ?", clientID, userID).
		Update("phone", strings.TrimSpace(phone))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
