// Package domain defines the persistence models for users, clients, debts,
// and support tickets. These types are mapped with GORM and form the core
// data layer of the collection assistant.
package domain

import (
	"time"
)

// Plan values stored on a user record.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// PlanSource values describe which authority granted the current plan.
const (
	PlanSourceTrial   = "trial"
	PlanSourceBilling = "billing"
	PlanSourceAdmin   = "admin"
)

// User is the identity record for one end-user phone number. All conversation
// state, plan state, and usage metering hang off this row.
//
// Fields:
//   - Identity: normalized phone number in E.164 form; primary key.
//   - PendingAction / PendingPayload: the in-progress multi-turn flow and its
//     scoped payload (JSON). The payload is meaningless without a matching
//     action; both are cleared together.
//   - Plan / PlanSource / PlanUntil: plan grant and its expiry (trial/admin).
//   - SubscriptionID / SubscriptionStatus / GraceUntil / BillingCycle: mirror
//     of the billing processor's view of this user, refreshed by webhook.
//   - DailyCount / DailyCountDay: rolling usage counter and the calendar day
//     (YYYY-MM-DD, server-local) it applies to.
//   - SeenOnboarding: first-contact gate for the welcome message.
type User struct {
	Identity       string `json:"identity"        gorm:"type:varchar(32);primaryKey"`
	PendingAction  string `json:"pending_action"  gorm:"type:varchar(32);not null;default:''"`
	PendingPayload string `json:"pending_payload" gorm:"type:text;not null;default:''"`

	Plan       string     `json:"plan"        gorm:"type:varchar(8);not null;default:'free';check:plan IN ('free','pro')"`
	PlanSource string     `json:"plan_source" gorm:"type:varchar(16);not null;default:''"`
	PlanUntil  *time.Time `json:"plan_until"`

	SubscriptionID     string     `json:"subscription_id"     gorm:"type:varchar(64);not null;default:'';index"`
	SubscriptionStatus string     `json:"subscription_status" gorm:"type:varchar(32);not null;default:''"`
	GraceUntil         *time.Time `json:"grace_until"`
	BillingCycle       string     `json:"billing_cycle" gorm:"type:varchar(16);not null;default:''"`

	DailyCount    int    `json:"daily_count"     gorm:"not null;default:0"`
	DailyCountDay string `json:"daily_count_day" gorm:"type:varchar(10);not null;default:''"`

	BusinessName   string `json:"business_name" gorm:"type:varchar(120);not null;default:''"`
	SeenOnboarding bool   `json:"seen_onboarding" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Client is a debtor contact owned by a user. Names are matched
// case-insensitively and must be unique per owner.
type Client struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(32);not null;index;uniqueIndex:ux_client_user_name"`
	Name      string    `json:"name"       gorm:"type:varchar(120);not null"`
	NameKey   string    `json:"-"          gorm:"type:varchar(120);not null;uniqueIndex:ux_client_user_name"`
	Phone     string    `json:"phone"      gorm:"type:varchar(32);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// Debt is one logged amount a client owes the user. Paid debts are retained
// for history rather than deleted.
type Debt struct {
	ID        string     `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string     `json:"user_id"   gorm:"type:varchar(32);not null;index:idx_user_debts,priority:1"`
	ClientID  string     `json:"client_id" gorm:"type:char(36);not null;index"`
	Amount    float64    `json:"amount"    gorm:"not null"`
	Note      string     `json:"note"      gorm:"type:varchar(255);not null;default:''"`
	Paid      bool       `json:"paid"      gorm:"not null;default:false;index:idx_user_debts,priority:2"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Client is the debtor. Debts are cascade-deleted with their client.
	Client Client `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Debt.
func (Debt) TableName() string { return "debts" }

// Age returns how long the debt has been open.
func (d Debt) Age() time.Duration { return time.Since(d.CreatedAt) }

// SupportTicket holds one free-text report captured by the support flow.
type SupportTicket struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"  gorm:"type:varchar(32);not null;index"`
	Body      string    `json:"body"     gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for SupportTicket.
func (SupportTicket) TableName() string { return "support_tickets" }
