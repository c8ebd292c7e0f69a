// Layered resolver: hard guard, then local router, then the external NLP
// fallback bounded by its own timeout. The fallback's output is untrusted;
// anything malformed, slow, or unrecognized degrades to KindUnknown rather
// than an error, so a misbehaving collaborator can only ever cost the user a
// rephrase prompt.
package intent

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	// resolutions counts outcomes by kind and producing layer.
	resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_resolutions_total",
			Help: "Resolved intents by kind and source layer.",
		},
		[]string{"kind", "source"},
	)

	// unknowns tracks messages neither layer understood; a product-quality
	// signal, not a correctness one.
	unknowns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intent_unknown_total",
			Help: "Messages that resolved to the unknown intent.",
		},
	)
)

func init() {
	prometheus.MustRegister(resolutions, unknowns)
}

// paymentTrigger is the safety-critical literal that must always resolve to
// the payment intent, bypassing both the router and the fallback.
const paymentTrigger = "pay"

// IsPaymentTrigger reports whether text is exactly the payment trigger word
// (case-insensitive, surrounding whitespace ignored).
func IsPaymentTrigger(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), paymentTrigger)
}

// Fallback is the external NLP collaborator. Implementations return their
// best-effort classification; errors and partial output are expected.
type Fallback interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

// Resolver runs the layered pipeline. A nil Fallback disables the NLP layer
// entirely; unmatched messages then resolve to unknown.
type Resolver struct {
	Fallback Fallback
	// Timeout bounds each fallback call, separate from the outer request
	// deadline. Expiry is treated as unknown, never as a fatal error.
	Timeout time.Duration
}

// Resolve classifies text. It never returns an error: every failure mode maps
// to KindUnknown so the caller's only remaining job is choosing reply copy.
func (r *Resolver) Resolve(ctx context.Context, text string) Intent {
	// Hard guard first: nothing may intercept or mis-route a payment action.
	if IsPaymentTrigger(text) {
		return r.record(Intent{Kind: KindPay, Source: SourceGuard})
	}

	if it, ok := MatchLocal(text); ok {
		return r.record(it)
	}

	if r.Fallback == nil {
		return r.record(Intent{Kind: KindUnknown, Source: SourceLocal})
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	it, err := r.Fallback.Classify(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("nlp fallback failed, treating as unknown")
		return r.record(Intent{Kind: KindUnknown, Source: SourceNLP})
	}
	it.Source = SourceNLP
	if !validKind(it.Kind) {
		it = Intent{Kind: KindUnknown, Source: SourceNLP}
	}
	// The fallback must never mint a payment action from fuzzy matching.
	if it.Kind == KindPay {
		it = Intent{Kind: KindPricing, Source: SourceNLP}
	}
	return r.record(it)
}

// record bumps the observability counters and passes the intent through.
func (r *Resolver) record(it Intent) Intent {
	resolutions.WithLabelValues(string(it.Kind), string(it.Source)).Inc()
	if it.Kind == KindUnknown {
		unknowns.Inc()
	}
	return it
}

// validKind reports whether k is a member of the closed intent set.
func validKind(k Kind) bool {
	switch k {
	case KindAddDebt, KindListDebts, KindPrioritize, KindRemind, KindMarkPaid,
		KindSavePhone, KindPricing, KindWantPro, KindPay, KindHelp,
		KindSupport, KindGreeting, KindCancel, KindUnknown:
		return true
	}
	return false
}
