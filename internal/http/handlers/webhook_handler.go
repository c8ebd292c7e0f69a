// Chat webhook endpoint. The transport POSTs one JSON document per inbound
// message; the response body carries the reply text, or an empty reply when
// the pipeline decided to stay silent (duplicate deliveries, blank input).
// The endpoint always answers 200 for parseable requests so the transport
// never retries a delivery the pipeline already admitted.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmfuentes/tallyup/internal/services"
)

// Handler aggregates the endpoint implementations and their service
// dependencies.
type Handler struct {
	Chat    *services.ChatService
	Billing *services.BillingService

	// BillingSecret and BillingTolerance parameterize billing-webhook
	// signature verification.
	BillingSecret    string
	BillingTolerance time.Duration
}

// New constructs the endpoint set.
func New(chat *services.ChatService, billing *services.BillingService, billingSecret string, billingTolerance time.Duration) *Handler {
	return &Handler{
		Chat:             chat,
		Billing:          billing,
		BillingSecret:    billingSecret,
		BillingTolerance: billingTolerance,
	}
}

// inboundRequest is the transport's delivery document.
type inboundRequest struct {
	From      string `json:"from" binding:"required"`
	Body      string `json:"body"`
	MessageID string `json:"message_id"`
}

// inboundResponse carries the reply text back to the transport. An empty
// reply means "acknowledge, send nothing".
type inboundResponse struct {
	Reply string `json:"reply"`
}

// PostInbound handles POST /webhooks/whatsapp.
func (h *Handler) PostInbound(c *gin.Context) {
	var req inboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid payload")
		return
	}

	reply := h.Chat.HandleInbound(c.Request.Context(), services.InboundMessage{
		From:       req.From,
		Body:       req.Body,
		DeliveryID: req.MessageID,
	})
	ok(c, http.StatusOK, inboundResponse{Reply: reply})
}
