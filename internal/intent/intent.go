// Package intent turns free-text chat messages into a closed set of typed
// commands. Resolution is layered: an exact-match hard guard for the payment
// trigger, then ordered local matchers, then an external NLP fallback whose
// output is never trusted beyond "best effort".
package intent

// Kind enumerates every command the assistant understands. The set is closed:
// anything else normalizes to KindUnknown, which the caller turns into a
// rephrase prompt.
type Kind string

const (
	KindAddDebt    Kind = "add_debt"
	KindListDebts  Kind = "list_debts"
	KindPrioritize Kind = "prioritize"
	KindRemind     Kind = "remind"
	KindMarkPaid   Kind = "mark_paid"
	KindSavePhone  Kind = "save_phone"
	KindPricing    Kind = "pricing"
	KindWantPro    Kind = "want_pro"
	KindPay        Kind = "pay"
	KindHelp       Kind = "help"
	KindSupport    Kind = "support"
	KindGreeting   Kind = "greeting"
	KindCancel     Kind = "cancel"
	KindUnknown    Kind = "unknown"
)

// Source records which layer produced a resolution, for observability.
type Source string

const (
	SourceGuard Source = "guard" // payment hard guard
	SourceLocal Source = "local" // ordered regex/phrase router
	SourceNLP   Source = "nlp"   // external fallback
)

// Intent is the resolved command plus the slots its kind requires. Slots not
// owned by the kind are left zero and must not be read.
type Intent struct {
	Kind   Kind
	Source Source

	// ClientName is set for add_debt, remind, mark_paid, save_phone.
	ClientName string
	// Amount is set for add_debt.
	Amount float64
	// Note is set for add_debt (optional free text after the amount).
	Note string
	// Phone is set for save_phone.
	Phone string
}

// Billable reports whether this intent consumes paywall quota. Everything
// outside the fixed allow-list (help, pricing, listing, billing entry points)
// is free.
func (i Intent) Billable() bool {
	switch i.Kind {
	case KindAddDebt, KindRemind, KindPrioritize, KindMarkPaid, KindSavePhone:
		return true
	default:
		return false
	}
}
