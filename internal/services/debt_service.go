// Package services – DebtService
//
// This file implements the debt bookkeeping operations the chat pipeline
// executes once an intent has cleared the paywall: logging debts, listing
// and prioritizing them, settling a client, and storing contact phones.
// These are ordinary CRUD compositions over the repository layer; the
// interesting coordination lives in the pipeline, not here.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmfuentes/tallyup/internal/domain"
	"github.com/jmfuentes/tallyup/internal/repo"
)

// DebtService owns debt and client operations for one store.
type DebtService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// PriorityLimit caps how many entries the prioritize view returns.
	PriorityLimit int
}

// NewDebtService constructs a DebtService with display defaults.
func NewDebtService(db *gorm.DB) *DebtService {
	return &DebtService{DB: db, PriorityLimit: 5}
}

// AddDebt logs a debt against the named client (created on first mention) and
// returns the debt plus the client's refreshed open total.
func (s *DebtService) AddDebt(ctx context.Context, userID, clientName string, amount float64, note string) (*domain.Debt, float64, int64, error) {
	tr := otel.Tracer("services/DebtService")
	ctx, span := tr.Start(ctx, "AddDebt",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	client, err := repo.UpsertClient(ctx, s.DB, userID, clientName)
	if err != nil {
		return nil, 0, 0, err
	}
	debt, err := repo.CreateDebt(ctx, s.DB, userID, client.ID, amount, strings.TrimSpace(note))
	if err != nil {
		return nil, 0, 0, err
	}
	total, count, err := repo.OpenDebtTotal(ctx, s.DB, userID, client.ID)
	if err != nil {
		// The debt is logged; total display is best-effort.
		total, count = amount, 1
	}
	return debt, total, count, nil
}

// ListOpen returns the user's open debts, newest first.
func (s *DebtService) ListOpen(ctx context.Context, userID string) ([]domain.Debt, error) {
	return repo.ListOpenDebts(ctx, s.DB, userID)
}

// Prioritize returns the oldest open debts, the ones to chase first.
func (s *DebtService) Prioritize(ctx context.Context, userID string) ([]domain.Debt, error) {
	return repo.ListOpenDebtsByAge(ctx, s.DB, userID, s.PriorityLimit)
}

// MarkPaid settles every open debt for the named client. Returns
// ErrClientNotFound or ErrNothingOwed for the predictable cases.
func (s *DebtService) MarkPaid(ctx context.Context, userID, clientName string) (int64, error) {
	client, err := repo.GetClientByName(ctx, s.DB, userID, clientName)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrClientNotFound
		}
		return 0, err
	}
	count, err := repo.MarkDebtsPaid(ctx, s.DB, userID, client.ID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNothingOwed
	}
	return count, nil
}

// SavePhone stores a contact phone for the named client, creating the client
// if needed.
func (s *DebtService) SavePhone(ctx context.Context, userID, clientName, phone string) error {
	client, err := repo.UpsertClient(ctx, s.DB, userID, clientName)
	if err != nil {
		return err
	}
	return repo.SetClientPhone(ctx, s.DB, userID, client.ID, phone)
}

// OpenBalance returns the named client plus their open total and debt count.
// ErrClientNotFound / ErrNothingOwed cover the predictable cases.
func (s *DebtService) OpenBalance(ctx context.Context, userID, clientName string) (*domain.Client, float64, error) {
	client, err := repo.GetClientByName(ctx, s.DB, userID, clientName)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrClientNotFound
		}
		return nil, 0, err
	}
	total, count, err := repo.OpenDebtTotal(ctx, s.DB, userID, client.ID)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, 0, ErrNothingOwed
	}
	return client, total, nil
}
