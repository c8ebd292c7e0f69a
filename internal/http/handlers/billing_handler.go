// Billing webhook endpoint. Signature verification runs against the raw
// request bytes before any JSON parsing; an unverifiable delivery is the one
// case this service hard-rejects a webhook. Past verification the endpoint
// acknowledges with 200 whenever the event id could be claimed, even if the
// local effects failed, so the processor does not retry a burned event id.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmfuentes/tallyup/internal/billing"
	"github.com/jmfuentes/tallyup/internal/http/middleware"
)

// signatureHeader carries the processor's timestamped HMAC.
const signatureHeader = "Signature"

// maxBillingBody bounds how much of the raw body is read for verification.
const maxBillingBody = 256 << 10

// PostBillingEvent handles POST /webhooks/billing.
func (h *Handler) PostBillingEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBillingBody))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable payload")
		return
	}

	sig := c.GetHeader(signatureHeader)
	if err := billing.VerifySignature(payload, sig, h.BillingSecret, h.BillingTolerance, time.Now()); err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Warn().Err(err).Msg("billing signature rejected")
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid signature")
		return
	}

	var ev billing.Envelope
	if err := json.Unmarshal(payload, &ev); err != nil || ev.ID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid envelope")
		return
	}

	if err := h.Billing.HandleEvent(c.Request.Context(), ev); err != nil {
		// The claim itself failed; the processor should redeliver.
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "event not accepted")
		return
	}

	ok(c, http.StatusOK, gin.H{"received": true})
}
