// Local command router: an ordered list of cheap pure matchers. First match
// wins; ordering encodes precedence for any accidental overlap (the slotted
// patterns run before the bare keywords so "remind maria" never matches a
// keyword rule by prefix).
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// addDebtRE matches "debt <name> <amount> [note]" with an optional "add"
	// prefix and currency sign. The name is lazy so the amount anchors it.
	addDebtRE = regexp.MustCompile(`^(?i)(?:add\s+)?debt\s+(.+?)\s+\$?(\d+(?:[.,]\d{1,2})?)(?:\s+(.+))?$`)

	// paidRE matches "paid <name>".
	paidRE = regexp.MustCompile(`^(?i)paid\s+(.+)$`)

	// remindRE matches "remind <name>".
	remindRE = regexp.MustCompile(`^(?i)remind\s+(.+)$`)

	// savePhoneRE matches "save phone of <name> <number>".
	savePhoneRE = regexp.MustCompile(`^(?i)save\s+phone\s+(?:of\s+)?(.+?)\s+(\+?\d[\d\s\-]{5,})$`)
)

// keywordRules maps exact phrases (after folding) to slot-free kinds.
var keywordRules = map[string]Kind{
	"hi":         KindGreeting,
	"hello":      KindGreeting,
	"hey":        KindGreeting,
	"help":       KindHelp,
	"menu":       KindHelp,
	"list":       KindListDebts,
	"debts":      KindListDebts,
	"list debts": KindListDebts,
	"priority":   KindPrioritize,
	"prioritize": KindPrioritize,
	"who first":  KindPrioritize,
	"pricing":    KindPricing,
	"price":      KindPricing,
	"plans":      KindPricing,
	"pro":        KindWantPro,
	"upgrade":    KindWantPro,
	"want pro":   KindWantPro,
	"support":    KindSupport,
	"cancel":     KindCancel,
	"stop":       KindCancel,
}

// fold normalizes text for matching: trim, lower-case, collapse inner runs of
// whitespace.
func fold(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(text))), " ")
}

// MatchLocal runs the ordered local matchers and reports whether one fired.
// Matchers are mutually exclusive in practice; the slotted patterns take
// precedence over bare keywords.
func MatchLocal(text string) (Intent, bool) {
	folded := fold(text)
	if folded == "" {
		return Intent{Kind: KindUnknown, Source: SourceLocal}, false
	}

	if m := savePhoneRE.FindStringSubmatch(folded); m != nil {
		return Intent{
			Kind:       KindSavePhone,
			Source:     SourceLocal,
			ClientName: strings.TrimSpace(m[1]),
			Phone:      strings.ReplaceAll(strings.ReplaceAll(m[2], " ", ""), "-", ""),
		}, true
	}
	if m := addDebtRE.FindStringSubmatch(folded); m != nil {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
		if err == nil && amount > 0 {
			return Intent{
				Kind:       KindAddDebt,
				Source:     SourceLocal,
				ClientName: strings.TrimSpace(m[1]),
				Amount:     amount,
				Note:       strings.TrimSpace(m[3]),
			}, true
		}
	}
	if m := paidRE.FindStringSubmatch(folded); m != nil {
		return Intent{Kind: KindMarkPaid, Source: SourceLocal, ClientName: strings.TrimSpace(m[1])}, true
	}
	if m := remindRE.FindStringSubmatch(folded); m != nil {
		return Intent{Kind: KindRemind, Source: SourceLocal, ClientName: strings.TrimSpace(m[1])}, true
	}

	if kind, ok := keywordRules[folded]; ok {
		return Intent{Kind: kind, Source: SourceLocal}, true
	}

	return Intent{Kind: KindUnknown, Source: SourceLocal}, false
}

// LooksLikeCommand reports whether text would resolve locally (including the
// payment hard guard). The conversation state machine uses this probe to
// abandon a stale flow when the user issues an unrelated command instead of
// answering the prompt.
func LooksLikeCommand(text string) bool {
	if IsPaymentTrigger(text) {
		return true
	}
	_, ok := MatchLocal(text)
	return ok
}
