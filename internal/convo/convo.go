// Package convo defines the per-identity conversation state machine: the
// named pending actions, the payload scoped to each, and the small fixed
// vocabularies the non-idle states match against. The pure matching lives
// here; executing transitions and their side effects is the chat service's
// job, with the store's conditional update as the transition primitive.
package convo

import (
	"encoding/json"
	"strings"
)

// State names stored in users.pending_action. Empty means idle.
const (
	StateIdle           = ""
	StateChooseTone     = "choose_tone"
	StateConfirmSend    = "confirm_send"
	StateAskName        = "ask_name"
	StateAskCycle       = "ask_cycle"
	StateSupportCollect = "support_collect"
)

// Tones accepted by the choose_tone state.
const (
	ToneFormal   = "formal"
	ToneFriendly = "friendly"
	ToneFirm     = "firm"
)

// Billing cycles accepted by the ask_cycle state.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
)

// Payload is the structured data scoped to a pending action. It is stored as
// JSON in users.pending_payload, is meaningless without its owning action,
// and is discarded whenever the action clears. Only the fields the current
// state owns may be read.
type Payload struct {
	// Reminder flow (choose_tone, confirm_send).
	ClientName  string  `json:"client_name,omitempty"`
	ClientPhone string  `json:"client_phone,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Tone        string  `json:"tone,omitempty"`
	Draft       string  `json:"draft,omitempty"`

	// Signup flow (ask_name, ask_cycle).
	BusinessName string `json:"business_name,omitempty"`
	Cycle        string `json:"cycle,omitempty"`
}

// Encode serializes the payload for storage. Encoding a Payload never fails;
// an encode problem degrades to the empty payload.
func (p Payload) Encode() string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodePayload parses a stored payload. Malformed or empty input yields the
// zero payload; a stale blob must never wedge the conversation.
func DecodePayload(raw string) Payload {
	var p Payload
	if raw == "" {
		return p
	}
	_ = json.Unmarshal([]byte(raw), &p)
	return p
}

// normalize folds a user answer for vocabulary matching.
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// MatchTone maps a choose_tone answer onto the tone vocabulary.
func MatchTone(text string) (string, bool) {
	switch normalize(text) {
	case "formal", "1":
		return ToneFormal, true
	case "friendly", "2":
		return ToneFriendly, true
	case "firm", "3":
		return ToneFirm, true
	}
	return "", false
}

// MatchYesNo interprets a confirm_send answer. ok=false means the input is
// neither affirmative nor negative.
func MatchYesNo(text string) (yes bool, ok bool) {
	switch normalize(text) {
	case "yes", "y", "send", "ok", "sure", "confirm":
		return true, true
	case "no", "n", "dont", "don't", "skip":
		return false, true
	}
	return false, false
}

// MatchCycle maps an ask_cycle answer onto the billing-cycle vocabulary.
func MatchCycle(text string) (string, bool) {
	switch normalize(text) {
	case "monthly", "month", "1":
		return CycleMonthly, true
	case "yearly", "year", "annual", "2":
		return CycleYearly, true
	}
	return "", false
}

// IsCancel reports whether text is an explicit cancel token. Cancel is a
// global transition: from any non-idle state it returns to idle and discards
// the payload, taking priority over state-specific matching.
func IsCancel(text string) bool {
	switch normalize(text) {
	case "cancel", "stop", "never mind", "nevermind":
		return true
	}
	return false
}
