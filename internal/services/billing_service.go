// Package services – BillingService
//
// This file applies billing-processor notifications to the local plan mirror.
// The contract with the processor: every event is acknowledged with success
// once its signature verified and its id is claimed, even when the local
// effects fail. A claimed-but-unfinished event stays locked (processed_at
// never stamped) so it surfaces in audits instead of double-applying on a
// processor retry.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jmfuentes/tallyup/internal/billing"
	"github.com/jmfuentes/tallyup/internal/domain"
	"github.com/jmfuentes/tallyup/internal/repo"
	"github.com/jmfuentes/tallyup/internal/transport"
)

var billingEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tallyup_billing_events_total",
		Help: "Billing notifications by type and outcome (applied, duplicate, ignored, failed).",
	},
	[]string{"type", "outcome"},
)

func init() {
	prometheus.MustRegister(billingEvents)
}

// BillingService turns verified processor events into plan-mirror updates and
// user-facing notifications. Sender may be nil; notifications are then skipped.
type BillingService struct {
	DB     *gorm.DB
	Sender transport.Sender

	// GraceLeeway extends the subscription period end before a lapsed
	// subscription loses pro access.
	GraceLeeway time.Duration
}

// HandleEvent processes one verified notification. The returned error means
// the event could not even be claimed; every other failure is logged and
// swallowed so the handler acknowledges receipt.
func (s *BillingService) HandleEvent(ctx context.Context, ev billing.Envelope) error {
	isNew, err := repo.ClaimBillingEvent(ctx, s.DB, ev.ID, ev.Type)
	if err != nil {
		billingEvents.WithLabelValues(ev.Type, "failed").Inc()
		return err
	}
	if !isNew {
		billingEvents.WithLabelValues(ev.Type, "duplicate").Inc()
		log.Info().Str("event_id", ev.ID).Str("type", ev.Type).Msg("billing event replayed, skipping")
		return nil
	}

	applied, aerr := s.apply(ctx, ev)
	if aerr != nil {
		// Leave the claim unstamped: the event id is burned, the effects are
		// incomplete, and an operator has to resolve it. Retrying here risks
		// double side effects.
		billingEvents.WithLabelValues(ev.Type, "failed").Inc()
		log.Error().Err(aerr).Str("event_id", ev.ID).Str("type", ev.Type).Msg("billing event effects failed")
		return nil
	}
	if !applied {
		billingEvents.WithLabelValues(ev.Type, "ignored").Inc()
	} else {
		billingEvents.WithLabelValues(ev.Type, "applied").Inc()
	}

	if err := repo.MarkBillingEventDone(ctx, s.DB, ev.ID); err != nil {
		log.Warn().Err(err).Str("event_id", ev.ID).Msg("billing event stamp failed")
	}
	return nil
}

// apply runs the per-type effects. applied=false means the type is unknown
// and was deliberately ignored.
func (s *BillingService) apply(ctx context.Context, ev billing.Envelope) (bool, error) {
	switch ev.Type {
	case billing.EventCheckoutCompleted:
		return true, s.applyCheckout(ctx, ev.Data)
	case billing.EventSubscriptionUpdated:
		return true, s.applyUpdate(ctx, ev.Data)
	case billing.EventSubscriptionDeleted:
		return true, s.applyDelete(ctx, ev.Data)
	default:
		log.Info().Str("type", ev.Type).Msg("billing event type ignored")
		return false, nil
	}
}

// applyCheckout activates pro for the identity the checkout was started for.
func (s *BillingService) applyCheckout(ctx context.Context, d billing.EventData) error {
	u, err := repo.GetUser(ctx, s.DB, d.Identity)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	fields := map[string]any{
		"plan":                domain.PlanPro,
		"plan_source":         domain.PlanSourceBilling,
		"plan_until":          nil,
		"subscription_id":     d.SubscriptionID,
		"subscription_status": statusOrDefault(d.Status, "active"),
	}
	if d.Cycle != "" {
		fields["billing_cycle"] = d.Cycle
	}
	if g := s.graceFrom(d.CurrentPeriodEnd); g != nil {
		fields["grace_until"] = g
	}
	if err := repo.PatchUser(ctx, s.DB, u.Identity, fields); err != nil {
		return err
	}

	s.notify(ctx, u.Identity, replyProActivated)
	return nil
}

// applyUpdate mirrors a status change onto the subscribed user.
func (s *BillingService) applyUpdate(ctx context.Context, d billing.EventData) error {
	u, err := repo.GetUserBySubscription(ctx, s.DB, d.SubscriptionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	fields := map[string]any{
		"subscription_status": d.Status,
	}
	if d.Cycle != "" {
		fields["billing_cycle"] = d.Cycle
	}
	if g := s.graceFrom(d.CurrentPeriodEnd); g != nil {
		fields["grace_until"] = g
	}
	return repo.PatchUser(ctx, s.DB, u.Identity, fields)
}

// applyDelete downgrades the subscribed user back to the free plan.
func (s *BillingService) applyDelete(ctx context.Context, d billing.EventData) error {
	u, err := repo.GetUserBySubscription(ctx, s.DB, d.SubscriptionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	err = repo.PatchUser(ctx, s.DB, u.Identity, map[string]any{
		"plan":                domain.PlanFree,
		"plan_source":         "",
		"plan_until":          nil,
		"subscription_status": "canceled",
		"grace_until":         nil,
	})
	if err != nil {
		return err
	}

	s.notify(ctx, u.Identity, replyProCancelled)
	return nil
}

// graceFrom converts the processor's period end into the local grace deadline.
func (s *BillingService) graceFrom(periodEnd int64) *time.Time {
	if periodEnd == 0 {
		return nil
	}
	g := time.Unix(periodEnd, 0).UTC().Add(s.GraceLeeway)
	return &g
}

// notify sends a best-effort plan-change message to the user. Delivery
// failures never fail the event.
func (s *BillingService) notify(ctx context.Context, identity, text string) {
	if s.Sender == nil {
		return
	}
	if err := s.Sender.Send(ctx, identity, text); err != nil {
		log.Warn().Err(err).Msg("billing notification failed")
	}
}

func statusOrDefault(status, def string) string {
	if status == "" {
		return def
	}
	return status
}
