// Subscription HTTP handlers.
//
// This file exposes the endpoints that move users between tiers:
//   - POST /subscribe/pro        (start a Stripe Checkout session)
//   - GET  /subscription/status  (current tier)
//   - POST /webhook/stripe       (Stripe event sink, signature-verified)
//
// The webhook route is unauthenticated; authenticity comes from the
// Stripe-Signature header, which the service verifies before acting.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/services"
)

// SubscriptionService defines tier management operations consumed by HTTP
// handlers.
type SubscriptionService interface {
	// CheckoutPro returns a hosted checkout URL upgrading the user to PRO.
	CheckoutPro(ctx context.Context, userID string) (string, error)
	// Status returns the user's current tier.
	Status(ctx context.Context, userID string) (domain.Tier, error)
	// HandleWebhook verifies and applies a Stripe event.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// CheckoutResponse carries the hosted checkout URL for the client to open.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// SubscriptionStatusResponse reports the user's current tier.
type SubscriptionStatusResponse struct {
	Tier domain.Tier `json:"tier" example:"PRO"`
}

// SubscribePro godoc
// @ID          subscribePro
// @Summary     Start a PRO upgrade checkout
// @Tags        Subscription
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.CheckoutResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /subscribe/pro [post]
func (h *Handlers) SubscribePro(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	url, err := h.subSvc.CheckoutPro(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unknown user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CheckoutResponse{URL: url})
}

// SubscriptionStatus godoc
// @ID          subscriptionStatus
// @Summary     Get current subscription tier
// @Tags        Subscription
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.SubscriptionStatusResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /subscription/status [get]
func (h *Handlers) SubscriptionStatus(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	tier, err := h.subSvc.Status(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unknown user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SubscriptionStatusResponse{Tier: tier})
}

// StripeWebhook godoc
// @ID          stripeWebhook
// @Summary     Stripe event sink
// @Description Receives subscription lifecycle events from Stripe. Requests must carry a valid Stripe-Signature header.
// @Tags        Subscription
// @Accept      json
// @Produce     json
// @Success     200  {string}  string  "Event applied"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid signature or payload"
// @Router      /webhook/stripe [post]
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable payload")
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if err := h.subSvc.HandleWebhook(c.Request.Context(), payload, sig); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "webhook rejected")
		return
	}
	c.Status(http.StatusOK)
}
