// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the support-ticket repository.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/domain"
)

// CreateSupportTicket stores one free-text report captured by the support flow.
func CreateSupportTicket(ctx context.Context, db *gorm.DB, userID, body string) (*domain.SupportTicket, error) {
	t := &domain.SupportTicket{
		ID:     uuid.NewString(),
		UserID: userID,
		Body:   body,
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}
