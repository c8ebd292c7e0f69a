// Multi-turn flow handlers. Each handler owns exactly one pending state and
// decides the next transition from the user's answer. The ordering inside
// every handler is fixed: cancel first, then the state's own vocabulary, then
// (where the flow allows it) the abort-on-command fallthrough, then a
// reprompt. Terminal steps clear the state with a compare-and-swap BEFORE
// running their side effect, so a duplicate delivery that slips past dedup
// loses the swap and cannot fire the effect twice.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jmfuentes/tallyup/internal/convo"
	"github.com/jmfuentes/tallyup/internal/domain"
	"github.com/jmfuentes/tallyup/internal/intent"
	"github.com/jmfuentes/tallyup/internal/repo"
)

const replyConfirmReprompt = "Should I send it? (yes/no)"

// handlePending dispatches the message to the handler for the user's pending
// state. handled=false means the flow aborted and the message should be
// resolved as a fresh command.
func (s *ChatService) handlePending(ctx context.Context, u *domain.User, body string) (reply string, handled bool) {
	if convo.IsCancel(body) {
		if err := repo.ClearPendingAction(ctx, s.DB, u.Identity); err != nil {
			log.Error().Err(err).Msg("cancel failed")
			return replyRetry, true
		}
		return replyCancelled, true
	}

	p := convo.DecodePayload(u.PendingPayload)
	switch u.PendingAction {
	case convo.StateChooseTone:
		return s.stepChooseTone(ctx, u, p, body)
	case convo.StateConfirmSend:
		return s.stepConfirmSend(ctx, u, p, body)
	case convo.StateAskName:
		return s.stepAskName(ctx, u, body)
	case convo.StateAskCycle:
		return s.stepAskCycle(ctx, u, p, body)
	case convo.StateSupportCollect:
		return s.stepSupportCollect(ctx, u, body)
	default:
		// Unknown state names left by older builds clear to idle.
		if err := repo.ClearPendingAction(ctx, s.DB, u.Identity); err != nil {
			log.Error().Err(err).Msg("stale state clear failed")
		}
		return "", false
	}
}

// stepChooseTone captures the reminder tone and advances to confirm_send with
// the rendered draft.
func (s *ChatService) stepChooseTone(ctx context.Context, u *domain.User, p convo.Payload, body string) (string, bool) {
	tone, ok := convo.MatchTone(body)
	if !ok {
		if intent.LooksLikeCommand(body) {
			return s.abortFlow(ctx, u.Identity)
		}
		return replyAskTone, true
	}

	p.Tone = tone
	p.Draft = reminderDraft(p, u.BusinessName)
	swapped, err := repo.SwapPendingAction(ctx, s.DB, u.Identity, convo.StateChooseTone, convo.StateConfirmSend, p.Encode())
	if err != nil {
		log.Error().Err(err).Msg("tone transition failed")
		return replyRetry, true
	}
	if !swapped {
		return "", true
	}
	return replyConfirmDraft(p.Draft), true
}

// stepConfirmSend is the terminal step of the reminder flow. The state is
// cleared before dispatch; whether the send succeeds or not, the flow is over.
func (s *ChatService) stepConfirmSend(ctx context.Context, u *domain.User, p convo.Payload, body string) (string, bool) {
	yes, ok := convo.MatchYesNo(body)
	if !ok {
		if intent.LooksLikeCommand(body) {
			return s.abortFlow(ctx, u.Identity)
		}
		return replyConfirmReprompt, true
	}

	swapped, err := repo.SwapPendingAction(ctx, s.DB, u.Identity, convo.StateConfirmSend, convo.StateIdle, "")
	if err != nil {
		log.Error().Err(err).Msg("confirm transition failed")
		return replyRetry, true
	}
	if !swapped {
		// A concurrent delivery already settled this confirmation.
		return "", true
	}

	if !yes {
		return replyReminderSkipped, true
	}
	if p.ClientPhone == "" {
		return replyNoPhone(p.ClientName), true
	}
	if s.Sender == nil {
		return replyReminderNotSent, true
	}
	if err := s.Sender.Send(ctx, p.ClientPhone, p.Draft); err != nil {
		log.Error().Err(err).Str("client", p.ClientName).Msg("reminder dispatch failed")
		return replyReminderNotSent, true
	}
	return replyReminderSent(p.ClientName), true
}

// stepAskName captures the business name verbatim and advances to ask_cycle.
// Free text is the expected answer here, so there is no command abort.
func (s *ChatService) stepAskName(ctx context.Context, u *domain.User, body string) (string, bool) {
	name := strings.TrimSpace(body)
	p := convo.Payload{BusinessName: name}
	swapped, err := repo.SwapPendingAction(ctx, s.DB, u.Identity, convo.StateAskName, convo.StateAskCycle, p.Encode())
	if err != nil {
		log.Error().Err(err).Msg("name transition failed")
		return replyRetry, true
	}
	if !swapped {
		return "", true
	}
	return replyAskCycle, true
}

// stepAskCycle is the terminal step of the signup flow. With a business name
// in the payload it activates the trial and offers checkout; reached directly
// from the pay command it goes straight to checkout.
func (s *ChatService) stepAskCycle(ctx context.Context, u *domain.User, p convo.Payload, body string) (string, bool) {
	cycle, ok := convo.MatchCycle(body)
	if !ok {
		return replyAskCycle, true
	}

	swapped, err := repo.SwapPendingAction(ctx, s.DB, u.Identity, convo.StateAskCycle, convo.StateIdle, "")
	if err != nil {
		log.Error().Err(err).Msg("cycle transition failed")
		return replyRetry, true
	}
	if !swapped {
		return "", true
	}

	if p.BusinessName != "" {
		until := time.Now().AddDate(0, 0, s.TrialDays)
		if err := repo.ActivateTrial(ctx, s.DB, u.Identity, p.BusinessName, cycle, until); err != nil {
			log.Error().Err(err).Msg("trial activation failed")
			return replyRetry, true
		}
		url := s.checkoutURL(ctx, u.Identity, cycle)
		return replyTrialStarted(s.TrialDays, url), true
	}

	if err := repo.PatchUser(ctx, s.DB, u.Identity, map[string]any{"billing_cycle": cycle}); err != nil {
		log.Warn().Err(err).Msg("cycle save failed")
	}
	return s.checkoutReply(ctx, u.Identity, cycle), true
}

// stepSupportCollect is the terminal step of the support flow: clear first,
// then file the ticket.
func (s *ChatService) stepSupportCollect(ctx context.Context, u *domain.User, body string) (string, bool) {
	swapped, err := repo.SwapPendingAction(ctx, s.DB, u.Identity, convo.StateSupportCollect, convo.StateIdle, "")
	if err != nil {
		log.Error().Err(err).Msg("support transition failed")
		return replyRetry, true
	}
	if !swapped {
		return "", true
	}
	if _, err := repo.CreateSupportTicket(ctx, s.DB, u.Identity, strings.TrimSpace(body)); err != nil {
		log.Error().Err(err).Msg("support ticket create failed")
		return replyRetry, true
	}
	return replySupportThanks, true
}

// abortFlow clears the pending state so the triggering message can be
// re-resolved as a fresh command.
func (s *ChatService) abortFlow(ctx context.Context, identity string) (string, bool) {
	if err := repo.ClearPendingAction(ctx, s.DB, identity); err != nil {
		log.Error().Err(err).Msg("flow abort failed")
		return replyRetry, true
	}
	return "", false
}
