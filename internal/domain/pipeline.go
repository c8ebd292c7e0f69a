// Pipeline bookkeeping models: inbound-delivery dedup keys and billing event
// locks. Both rely on primary-key uniqueness as the cross-instance
// concurrency primitive; a failed insert means "already handled".
package domain

import "time"

// DedupKey records one sighting of an inbound delivery. Keys are either
// "sid:<delivery-id>" or "hash:<sha1(identity+body)>". Rows are never
// updated after creation and are garbage-collected once ExpiresAt passes.
type DedupKey struct {
	Key       string    `json:"key"        gorm:"type:varchar(80);primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
}

// TableName returns the database table name for DedupKey.
func (DedupKey) TableName() string { return "dedup_keys" }

// BillingEvent is the durable lock for one billing-processor notification.
// A row with nil ProcessedAt is claimed but not finished; the claim is never
// auto-expired, so a crash mid-effect leaves the event stuck rather than
// risking a duplicate plan activation. Rows are retained for audit.
type BillingEvent struct {
	EventID     string     `json:"event_id"     gorm:"type:varchar(64);primaryKey"`
	Type        string     `json:"type"         gorm:"type:varchar(64);not null"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// TableName returns the database table name for BillingEvent.
func (BillingEvent) TableName() string { return "billing_events" }
