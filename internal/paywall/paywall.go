// Package paywall meters billable intents against a per-identity rolling
// daily quota and decides plan entitlement. Plan evaluation is layered
// because the billing-status mirror can lag reality; the gate prefers to keep
// a paying user on rather than flap their access during a billing hiccup.
package paywall

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/domain"
	"github.com/jmfuentes/tallyup/internal/intent"
	"github.com/jmfuentes/tallyup/internal/repo"
)

var (
	// blocks counts billable actions refused at the quota ceiling.
	blocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "paywall_blocks_total",
			Help: "Billable actions blocked by the free-plan quota.",
		},
	)
)

func init() {
	prometheus.MustRegister(blocks)
}

// Decision is the outcome of a gate check.
//
// Warn is advisory: the caller appends a low-balance nudge to an otherwise
// successful reply. It never blocks or alters the executed intent.
type Decision struct {
	Blocked   bool
	Warn      bool
	Remaining int // -1 when unlimited
}

// Gate owns quota configuration and the standing admin grants.
type Gate struct {
	DB             *gorm.DB
	FreeDailyLimit int
	WarnThreshold  int
	// AdminGrants are identities with a standing pro grant from config.
	AdminGrants map[string]struct{}
}

// New constructs a Gate from configuration values.
func New(db *gorm.DB, freeDailyLimit, warnThreshold int, adminGrants []string) *Gate {
	grants := make(map[string]struct{}, len(adminGrants))
	for _, id := range adminGrants {
		grants[id] = struct{}{}
	}
	return &Gate{
		DB:             db,
		FreeDailyLimit: freeDailyLimit,
		WarnThreshold:  warnThreshold,
		AdminGrants:    grants,
	}
}

// Day formats a timestamp as the calendar day the quota rolls on. The
// server-local day boundary is acceptable as long as it is consistent.
func Day(t time.Time) string {
	return t.Format("2006-01-02")
}

// Check gates one resolved intent for the user. Free intents and
// pro-equivalent plans pass untouched. For metered users it lazily rolls the
// counter to today, blocks at the ceiling without incrementing further, and
// otherwise increments and flags the warning exactly when remaining quota
// lands on the threshold.
//
// A store error is returned to the caller, which fails open (availability
// over strict metering); the decision in that case is "not blocked".
func (g *Gate) Check(ctx context.Context, u *domain.User, it intent.Intent) (Decision, error) {
	if !it.Billable() {
		return Decision{Remaining: -1}, nil
	}
	now := time.Now()
	if g.IsProEquivalent(u, now) {
		return Decision{Remaining: -1}, nil
	}

	day := Day(now)
	if u.DailyCountDay != day {
		if err := repo.RollUsageDay(ctx, g.DB, u.Identity, day); err != nil {
			return Decision{Remaining: -1}, err
		}
		u.DailyCount = 0
		u.DailyCountDay = day
	}

	if u.DailyCount >= g.FreeDailyLimit {
		blocks.Inc()
		return Decision{Blocked: true, Remaining: 0}, nil
	}

	count, err := repo.IncrementDailyCount(ctx, g.DB, u.Identity, day)
	if err != nil {
		return Decision{Remaining: -1}, err
	}
	u.DailyCount = count

	remaining := g.FreeDailyLimit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Warn:      remaining == g.WarnThreshold,
		Remaining: remaining,
	}, nil
}

// IsProEquivalent evaluates plan entitlement, most to least authoritative:
//
//  1. standing admin grant from config
//  2. explicit non-expired trial/admin grant on the row
//  3. billing subscription in an active-like state
//  4. billing subscription past-due/unpaid but inside the stored grace window
//  5. the bare plan=pro flag as a last-resort fallback
func (g *Gate) IsProEquivalent(u *domain.User, now time.Time) bool {
	if _, ok := g.AdminGrants[u.Identity]; ok {
		return true
	}
	if (u.PlanSource == domain.PlanSourceTrial || u.PlanSource == domain.PlanSourceAdmin) &&
		u.PlanUntil != nil && now.Before(*u.PlanUntil) {
		return true
	}
	switch u.SubscriptionStatus {
	case "active", "trialing":
		return true
	case "past_due", "unpaid":
		if u.GraceUntil != nil && now.Before(*u.GraceUntil) {
			return true
		}
	}
	return u.Plan == domain.PlanPro
}
