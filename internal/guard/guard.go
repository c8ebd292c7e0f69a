// Package guard rejects re-delivered or excessively frequent inbound events
// before any side effect runs.
//
// This file implements the admission check combining durable dedup (the
// shared store is the authority across instances) with the in-process cache
// and the per-identity limiter. Dedup is fail-open: if the store is
// unavailable the event is admitted rather than dropped, with an explicit
// metric so the degradation is visible instead of silent.
package guard

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/jmfuentes/tallyup/internal/repo"
)

var (
	// dedupHits counts rejected re-deliveries by key kind ("sid", "hash").
	dedupHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_hits_total",
			Help: "Inbound events rejected as duplicates.",
		},
		[]string{"kind"},
	)

	// dedupFailOpen counts events admitted because the dedup store errored.
	// A non-zero rate means exactly-once effect application is degraded.
	dedupFailOpen = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_fail_open_total",
			Help: "Inbound events admitted despite a dedup store error.",
		},
	)

	// throttled counts events rejected by the per-identity limiter.
	throttled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "identity_throttled_total",
			Help: "Inbound events rejected by the per-identity rate limiter.",
		},
	)
)

func init() {
	prometheus.MustRegister(dedupHits, dedupFailOpen, throttled)
}

// Verdict is the outcome of an admission check.
//
//   - Admit=false, Throttled=false: duplicate delivery; send no reply at all,
//     the original reply already went out or is in flight.
//   - Admit=false, Throttled=true: rate limited; send the throttle notice.
//   - Admit=true: proceed with the pipeline.
type Verdict struct {
	Admit     bool
	Throttled bool
}

// Options tunes the durable retention windows.
type Options struct {
	// SIDRetention is the lifetime of delivery-id keys. Must exceed the
	// transport's retry window.
	SIDRetention time.Duration
	// HashRetention is the lifetime of content-hash keys. Kept short:
	// identical bodies from one identity close together are almost certainly
	// retries, not two genuine messages with the same text.
	HashRetention time.Duration
}

// Guard is the admission component placed in front of the chat pipeline.
// The zero value is not usable; construct with New.
type Guard struct {
	db      *gorm.DB
	cache   *TTLCache
	limiter *SlidingLimiter
	opts    Options
}

// New constructs a Guard. cache and limiter are injected so tests and
// multi-instance deployments can substitute their own.
func New(db *gorm.DB, cache *TTLCache, limiter *SlidingLimiter, opts Options) *Guard {
	return &Guard{db: db, cache: cache, limiter: limiter, opts: opts}
}

// HashKey derives the content-hash dedup key for an (identity, body) pair.
// It absorbs duplicate deliveries that lack a stable delivery id or where the
// transport retried with a new one.
func HashKey(identity, body string) string {
	sum := sha1.Sum([]byte(identity + body))
	return "hash:" + hex.EncodeToString(sum[:])
}

// SIDKey derives the dedup key for a transport delivery-attempt identifier.
func SIDKey(deliveryID string) string {
	return "sid:" + deliveryID
}

// Admit decides whether the event may proceed. Order matters: durable dedup
// first (duplicates are silent), then the per-identity limiter (throttled
// events still get a user-visible reply).
func (g *Guard) Admit(ctx context.Context, identity, deliveryID, body string) Verdict {
	if deliveryID != "" {
		if !g.check(ctx, SIDKey(deliveryID), g.opts.SIDRetention, "sid") {
			return Verdict{}
		}
	}
	if !g.check(ctx, HashKey(identity, body), g.opts.HashRetention, "hash") {
		return Verdict{}
	}

	if !g.limiter.Allow(identity) {
		throttled.Inc()
		return Verdict{Throttled: true}
	}
	return Verdict{Admit: true}
}

// check returns false when key was already seen. The in-process cache answers
// first; misses fall through to the durable unique insert. Store errors
// admit the event (fail-open) and bump the degradation counter.
func (g *Guard) check(ctx context.Context, key string, retention time.Duration, kind string) bool {
	if g.cache != nil && g.cache.Seen(key) {
		dedupHits.WithLabelValues(kind).Inc()
		return false
	}

	err := repo.InsertDedupKey(ctx, g.db, key, retention)
	switch {
	case err == nil:
		if g.cache != nil {
			g.cache.Add(key)
		}
		return true
	case err == repo.ErrDuplicate:
		dedupHits.WithLabelValues(kind).Inc()
		return false
	default:
		dedupFailOpen.Inc()
		log.Warn().Err(err).Str("kind", kind).Msg("dedup store unavailable, admitting event")
		return true
	}
}
