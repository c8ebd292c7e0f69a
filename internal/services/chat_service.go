// Package services – ChatService
//
// This file implements the inbound chat pipeline: admission (dedup + rate
// limit), identity lookup, conversation-state dispatch, intent resolution,
// the paywall gate, and effect execution. Every collaborator failure along
// the way degrades to reply copy; nothing here returns an error to the
// webhook handler, whose only remaining job is serializing the reply.
package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rs/zerolog/log"

	"github.com/jmfuentes/tallyup/internal/billing"
	"github.com/jmfuentes/tallyup/internal/convo"
	"github.com/jmfuentes/tallyup/internal/domain"
	"github.com/jmfuentes/tallyup/internal/guard"
	"github.com/jmfuentes/tallyup/internal/intent"
	"github.com/jmfuentes/tallyup/internal/paywall"
	"github.com/jmfuentes/tallyup/internal/repo"
	"github.com/jmfuentes/tallyup/internal/transport"
)

// InboundMessage is one chat delivery from the transport. DeliveryID is the
// transport's delivery-attempt identifier and may be empty.
type InboundMessage struct {
	From       string
	Body       string
	DeliveryID string
}

// ChatService coordinates the inbound pipeline. All fields are required
// except Checkout and Sender, which may be nil in degraded deployments (the
// affected intents then answer with retry copy).
type ChatService struct {
	DB       *gorm.DB
	Guard    *guard.Guard
	Resolver *intent.Resolver
	Paywall  *paywall.Gate
	Debts    *DebtService
	Sender   transport.Sender
	Checkout billing.CheckoutCreator

	// TrialDays is the length of the self-serve trial started by signup.
	TrialDays int
}

// NormalizeIdentity reduces a transport address to the stable identity key:
// scheme prefix and separators stripped, leading + kept.
func NormalizeIdentity(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(addr, "whatsapp:")
	var b strings.Builder
	for i, r := range addr {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HandleInbound runs one delivery through the pipeline and returns the reply
// text. An empty reply means "acknowledge with no message": the dedup case,
// where the original reply already went out or is in flight.
func (s *ChatService) HandleInbound(ctx context.Context, msg InboundMessage) string {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "HandleInbound")
	defer span.End()

	identity := NormalizeIdentity(msg.From)
	body := strings.TrimSpace(msg.Body)
	if identity == "" || body == "" {
		return ""
	}
	span.SetAttributes(attribute.String("user.id", identity))

	verdict := s.Guard.Admit(ctx, identity, msg.DeliveryID, body)
	if verdict.Throttled {
		return replyThrottle
	}
	if !verdict.Admit {
		return ""
	}

	u, err := repo.UpsertUser(ctx, s.DB, identity)
	if err != nil {
		log.Error().Err(err).Msg("user upsert failed")
		return replyRetry
	}

	if !u.SeenOnboarding {
		if perr := repo.PatchUser(ctx, s.DB, identity, map[string]any{"seen_onboarding": true}); perr != nil {
			log.Warn().Err(perr).Msg("onboarding flag update failed")
		}
		// A first contact that is already a command is processed normally;
		// anything else gets the welcome tour.
		if !intent.LooksLikeCommand(body) {
			return replyWelcome
		}
	}

	if u.PendingAction != convo.StateIdle {
		reply, handled := s.handlePending(ctx, u, body)
		if handled {
			return reply
		}
		// The flow aborted silently because the message looks like an
		// unrelated command; resolve that same message as if idle.
		u.PendingAction, u.PendingPayload = convo.StateIdle, ""
	}

	it := s.Resolver.Resolve(ctx, body)

	dec, err := s.Paywall.Check(ctx, u, it)
	if err != nil {
		log.Warn().Err(err).Msg("paywall check failed, allowing")
		dec = paywall.Decision{Remaining: -1}
	}
	if dec.Blocked {
		return replyPaywall
	}

	reply := s.execute(ctx, u, it)
	if dec.Warn && reply != "" {
		reply += replyWarnNudge(dec.Remaining)
	}
	return reply
}

// execute runs the effect for a resolved intent and returns the reply.
func (s *ChatService) execute(ctx context.Context, u *domain.User, it intent.Intent) string {
	switch it.Kind {
	case intent.KindGreeting:
		return replyWelcome
	case intent.KindHelp:
		return replyHelp
	case intent.KindPricing:
		return replyPricing
	case intent.KindCancel:
		return replyNothingToCancel

	case intent.KindAddDebt:
		_, total, count, err := s.Debts.AddDebt(ctx, u.Identity, it.ClientName, it.Amount, it.Note)
		if err != nil {
			log.Error().Err(err).Msg("add debt failed")
			return replyRetry
		}
		return replyDebtAdded(it.ClientName, it.Amount, total, count)

	case intent.KindListDebts:
		debts, err := s.Debts.ListOpen(ctx, u.Identity)
		if err != nil {
			log.Error().Err(err).Msg("list debts failed")
			return replyRetry
		}
		return replyDebtList(debts)

	case intent.KindPrioritize:
		debts, err := s.Debts.Prioritize(ctx, u.Identity)
		if err != nil {
			log.Error().Err(err).Msg("prioritize failed")
			return replyRetry
		}
		return replyPriority(debts)

	case intent.KindMarkPaid:
		count, err := s.Debts.MarkPaid(ctx, u.Identity, it.ClientName)
		switch err {
		case nil:
			return replyMarkedPaid(it.ClientName, count)
		case ErrClientNotFound:
			return replyClientNotFound(it.ClientName)
		case ErrNothingOwed:
			return replyNothingOwed(it.ClientName)
		default:
			log.Error().Err(err).Msg("mark paid failed")
			return replyRetry
		}

	case intent.KindSavePhone:
		if err := s.Debts.SavePhone(ctx, u.Identity, it.ClientName, it.Phone); err != nil {
			log.Error().Err(err).Msg("save phone failed")
			return replyRetry
		}
		return replyPhoneSaved(it.ClientName, it.Phone)

	case intent.KindRemind:
		return s.startReminder(ctx, u, it.ClientName)

	case intent.KindWantPro:
		if s.Paywall.IsProEquivalent(u, time.Now()) {
			return replyAlreadyPro
		}
		return s.enterState(ctx, u.Identity, convo.StateAskName, convo.Payload{}, replyAskBusinessName)

	case intent.KindPay:
		if u.BillingCycle == "" {
			return s.enterState(ctx, u.Identity, convo.StateAskCycle, convo.Payload{}, replyAskCycle)
		}
		return s.checkoutReply(ctx, u.Identity, u.BillingCycle)

	case intent.KindSupport:
		return s.enterState(ctx, u.Identity, convo.StateSupportCollect, convo.Payload{}, replyAskSupport)

	default:
		return replyRephrase
	}
}

// startReminder validates the target client and opens the choose_tone flow.
func (s *ChatService) startReminder(ctx context.Context, u *domain.User, clientName string) string {
	client, total, err := s.Debts.OpenBalance(ctx, u.Identity, clientName)
	switch err {
	case nil:
	case ErrClientNotFound:
		return replyClientNotFound(clientName)
	case ErrNothingOwed:
		return replyNothingOwed(clientName)
	default:
		log.Error().Err(err).Msg("reminder lookup failed")
		return replyRetry
	}

	p := convo.Payload{
		ClientName:  client.Name,
		ClientPhone: client.Phone,
		Amount:      total,
	}
	return s.enterState(ctx, u.Identity, convo.StateChooseTone, p, replyAskTone)
}

// enterState transitions idle → state via compare-and-swap and returns the
// prompt, or retry copy when a concurrent message already moved the row.
func (s *ChatService) enterState(ctx context.Context, identity, state string, p convo.Payload, prompt string) string {
	swapped, err := repo.SwapPendingAction(ctx, s.DB, identity, convo.StateIdle, state, p.Encode())
	if err != nil {
		log.Error().Err(err).Msg("state transition failed")
		return replyRetry
	}
	if !swapped {
		return replyRetry
	}
	return prompt
}

// checkoutReply creates a hosted-checkout session and relays the URL.
func (s *ChatService) checkoutReply(ctx context.Context, identity, cycle string) string {
	url := s.checkoutURL(ctx, identity, cycle)
	if url == "" {
		return replyRetry
	}
	return replyCheckout(url)
}

// checkoutURL is the best-effort session creator shared by the pay intent and
// the signup flow; it returns "" on any failure.
func (s *ChatService) checkoutURL(ctx context.Context, identity, cycle string) string {
	if s.Checkout == nil {
		return ""
	}
	url, err := s.Checkout.CreateCheckoutSession(ctx, identity, cycle)
	if err != nil {
		log.Warn().Err(err).Msg("checkout session create failed")
		return ""
	}
	return url
}
