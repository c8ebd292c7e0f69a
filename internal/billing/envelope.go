// Event envelope types for billing-processor notifications. The envelope is
// parsed only after the signature verifies; even then every field is treated
// as best-effort and unexpected types are acknowledged as "ignored" rather
// than rejected.
package billing

// Event types the processor emits for subscription lifecycle changes. Each
// notification carries a globally unique event id; a subscription update and
// a later cancellation are distinct events and both must be processed.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "subscription.updated"
	EventSubscriptionDeleted = "subscription.deleted"
)

// Envelope is one signed asynchronous notification.
type Envelope struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData is the payload common to subscription lifecycle events. Fields
// are nullable/partial on the wire; consumers must tolerate zero values.
type EventData struct {
	SubscriptionID string `json:"subscription_id"`
	// Identity is the end-user phone the checkout was started for. Present on
	// checkout completion; later events are matched by subscription id.
	Identity string `json:"identity"`
	Status   string `json:"status"` // active|trialing|past_due|unpaid|canceled
	Cycle    string `json:"cycle"`  // monthly|yearly
	// CurrentPeriodEnd is a unix timestamp; zero when the processor omits it.
	CurrentPeriodEnd int64 `json:"current_period_end"`
}
