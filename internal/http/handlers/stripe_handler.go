// Payment webhook handler.
//
// POST /webhooks/stripe receives provider events. The raw body is verified
// against the Stripe-Signature header before any decoding; verification
// failures are terminal 400s so the provider stops retrying forged or
// corrupted deliveries. Verified events are projected onto the entitlement
// record and acknowledged with {"received": true} even when they carry no
// actionable change.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadfeed/go-leads-backend/internal/payments"
)

// StripeWebhook godoc
// @ID          stripeWebhook
// @Summary     Receive payment events
// @Description Verifies the event signature and projects it onto the caller's entitlement state.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       Stripe-Signature  header  string  true  "Event signature"
//
// @Success     200  {object} map[string]bool
// @Failure     400  {object} handlers.ErrorResponse "Invalid signature or payload"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /webhooks/stripe [post]
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read request body")
		return
	}

	evt, err := payments.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidSignature, "webhook signature verification failed")
		return
	}

	if err := h.accessSvc.Apply(c.Request.Context(), evt); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "webhook handling failed")
		return
	}
	ok(c, http.StatusOK, gin.H{"received": true})
}
