// Package guard rejects re-delivered or excessively frequent inbound events
// before any side effect runs.
//
// This file implements the per-identity sliding-window limiter. Unlike the
// HTTP-edge token bucket, this one keys on the message sender (phone number)
// extracted from the webhook payload, and exists to bound how many
// genuinely-distinct messages from one identity can be in flight at once.
//
// The window state is purely in-process and rebuilt from scratch on restart;
// that is acceptable because its purpose is abuse damping, not correctness.
package guard

import (
	"sync"
	"time"
)

// window holds the recent event timestamps for one identity plus the last
// time the identity was seen, used to evict idle entries.
type window struct {
	stamps   []time.Time
	lastSeen time.Time
}

// SlidingLimiter bounds events per identity within a rolling time window.
// It is safe for concurrent use.
type SlidingLimiter struct {
	span    time.Duration
	ceiling int

	mu      sync.Mutex
	windows map[string]*window
}

// NewSlidingLimiter constructs a limiter allowing at most ceiling events per
// identity within span. A ceiling <= 0 is coerced to 1.
func NewSlidingLimiter(span time.Duration, ceiling int) *SlidingLimiter {
	if ceiling <= 0 {
		ceiling = 1
	}
	return &SlidingLimiter{
		span:    span,
		ceiling: ceiling,
		windows: make(map[string]*window),
	}
}

// Allow records one event for identity and reports whether it stays within
// the ceiling. Entries older than the window are dropped before counting, so
// normal processing resumes once the window rolls.
func (l *SlidingLimiter) Allow(identity string) bool {
	now := time.Now()
	cutoff := now.Add(-l.span)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[identity]
	if !ok {
		w = &window{}
		l.windows[identity] = w
	}
	w.lastSeen = now

	// Drop entries that fell out of the window.
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = append(kept, now)

	return len(w.stamps) <= l.ceiling
}

// Sweep evicts identities idle for longer than the window and returns how
// many were removed.
func (l *SlidingLimiter) Sweep() int {
	now := time.Now()
	removed := 0
	l.mu.Lock()
	for id, w := range l.windows {
		if now.Sub(w.lastSeen) >= l.span {
			delete(l.windows, id)
			removed++
		}
	}
	l.mu.Unlock()
	return removed
}
