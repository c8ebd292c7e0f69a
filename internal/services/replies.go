// Reply copy catalog. Everything user-visible the pipeline says lives here,
// so the orchestration code reads as decisions rather than prose. Client
// names are title-cased for display; stored names keep the user's casing.
package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jmfuentes/tallyup/internal/convo"
	"github.com/jmfuentes/tallyup/internal/domain"
)

// titleCaser display-cases client names in outbound copy.
var titleCaser = cases.Title(language.English)

func displayName(name string) string {
	return titleCaser.String(strings.TrimSpace(name))
}

func money(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

const (
	replyWelcome = "Welcome to TallyUp! I keep track of who owes you money.\n" +
		"Try: \"debt Maria 50 groceries\" to log a debt, \"list\" to see them,\n" +
		"\"remind Maria\" to send a payment reminder. Send \"help\" anytime."

	replyHelp = "Here's what I can do:\n" +
		"• debt <name> <amount> [note] — log a debt\n" +
		"• list — open debts\n" +
		"• priority — who to chase first\n" +
		"• remind <name> — send a payment reminder\n" +
		"• paid <name> — settle their debts\n" +
		"• save phone of <name> <number>\n" +
		"• pricing / pro / pay — plans and billing\n" +
		"• support — talk to a human\n" +
		"Send \"cancel\" to abandon any step."

	replyPricing = "TallyUp Free includes 15 actions per day. TallyUp Pro is " +
		"unlimited — $9/month or $90/year, with a 14-day free trial. Send " +
		"\"pro\" to start, or \"pay\" to check out."

	replyThrottle = "You're sending messages a little too fast — give me a " +
		"few seconds and try again."

	replyPaywall = "You've used today's 15 free actions. Send \"pro\" to go " +
		"unlimited, or try again tomorrow."

	replyRephrase = "Sorry, I didn't catch that. Send \"help\" to see what I " +
		"understand."

	replyRetry = "Something went wrong on my side — please try that again."

	replyCancelled = "Okay, cancelled."

	replyNothingToCancel = "Nothing in progress to cancel."

	replyAskTone = "What tone should the reminder have? formal, friendly, or firm."

	replyAskBusinessName = "Let's get you set up. What's your business called?"

	replyAskCycle = "Monthly or yearly billing?"

	replyAskSupport = "Tell me what happened and I'll pass it to the team."

	replySupportThanks = "Thanks — the team has your report and will get back to you."

	replyAlreadyPro = "You're already on Pro — nothing to upgrade."
)

func replyWarnNudge(remaining int) string {
	return fmt.Sprintf("\n\nHeads up: %d free actions left today.", remaining)
}

func replyDebtAdded(client string, amount float64, total float64, count int64) string {
	if count > 1 {
		return fmt.Sprintf("Noted: %s owes %s. They now owe %s across %d debts.",
			displayName(client), money(amount), money(total), count)
	}
	return fmt.Sprintf("Noted: %s owes %s.", displayName(client), money(amount))
}

func replyDebtList(debts []domain.Debt) string {
	if len(debts) == 0 {
		return "No open debts. Log one with \"debt <name> <amount>\"."
	}
	var b strings.Builder
	b.WriteString("Open debts:\n")
	var total float64
	for _, d := range debts {
		total += d.Amount
		b.WriteString(fmt.Sprintf("• %s — %s", displayName(d.Client.Name), money(d.Amount)))
		if d.Note != "" {
			b.WriteString(" (" + d.Note + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("Total: " + money(total))
	return b.String()
}

func replyPriority(debts []domain.Debt) string {
	if len(debts) == 0 {
		return "Nothing to chase — no open debts."
	}
	var b strings.Builder
	b.WriteString("Chase these first (oldest debts):\n")
	for i, d := range debts {
		days := int(d.Age().Hours() / 24)
		b.WriteString(fmt.Sprintf("%d. %s — %s, %d days old\n",
			i+1, displayName(d.Client.Name), money(d.Amount), days))
	}
	return strings.TrimRight(b.String(), "\n")
}

func replyMarkedPaid(client string, count int64) string {
	if count == 1 {
		return fmt.Sprintf("Done — marked %s's debt as paid.", displayName(client))
	}
	return fmt.Sprintf("Done — marked %d debts from %s as paid.", count, displayName(client))
}

func replyPhoneSaved(client, phone string) string {
	return fmt.Sprintf("Saved %s for %s.", phone, displayName(client))
}

func replyClientNotFound(client string) string {
	return fmt.Sprintf("I don't have anyone called %s yet.", displayName(client))
}

func replyNothingOwed(client string) string {
	return fmt.Sprintf("%s has no open debts.", displayName(client))
}

func replyNoPhone(client string) string {
	return fmt.Sprintf("I don't have a phone number for %s. Send \"save phone of %s <number>\" first.",
		displayName(client), strings.ToLower(strings.TrimSpace(client)))
}

func replyConfirmDraft(draft string) string {
	return "Here's the reminder:\n\n" + draft + "\n\nSend it? (yes/no)"
}

func replyReminderSent(client string) string {
	return fmt.Sprintf("Reminder sent to %s.", displayName(client))
}

const replyReminderNotSent = "I couldn't deliver that reminder — please try again in a moment."

const replyReminderSkipped = "Okay, I won't send it."

func replyTrialStarted(days int, checkoutURL string) string {
	msg := fmt.Sprintf("Your %d-day Pro trial is live — everything is unlimited from now.", days)
	if checkoutURL != "" {
		msg += "\nWhen you're ready, complete your subscription here: " + checkoutURL
	}
	return msg
}

func replyCheckout(url string) string {
	return "Complete your payment here: " + url
}

const replyProActivated = "Payment confirmed — you're on TallyUp Pro. Everything is unlimited."

const replyProCancelled = "Your Pro subscription has ended. You're back on the free plan (15 actions/day)."

// reminderDraft composes the outbound reminder text for the chosen tone.
func reminderDraft(p convo.Payload, businessName string) string {
	from := businessName
	if from == "" {
		from = "your local shop"
	}
	name := displayName(p.ClientName)
	amount := money(p.Amount)
	switch p.Tone {
	case convo.ToneFormal:
		return fmt.Sprintf("Dear %s, this is a payment reminder from %s. Our records show an outstanding balance of %s. We would appreciate settlement at your earliest convenience.",
			name, from, amount)
	case convo.ToneFirm:
		return fmt.Sprintf("%s, your balance of %s with %s is overdue. Please arrange payment today.",
			name, amount, from)
	default: // friendly
		return fmt.Sprintf("Hi %s! Quick reminder from %s — you have a pending balance of %s. Whenever you get a chance!",
			name, from, amount)
	}
}
