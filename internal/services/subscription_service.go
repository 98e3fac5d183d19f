// Package services – SubscriptionService
//
// This file implements SubscriptionService, which moves users between the
// BASIC and PRO tiers through Stripe Checkout. Upgrading returns a hosted
// checkout URL; the actual tier flip happens when Stripe delivers the
// corresponding webhook event, so the local tier always trails Stripe's view
// of the subscription rather than racing it.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/repo"
)

// SubscriptionService drives tier changes through Stripe Checkout sessions
// and webhook events.
type SubscriptionService struct {
	DB     *gorm.DB
	Stripe *client.API

	// ProPriceID is the recurring price backing the PRO tier.
	ProPriceID string
	// WebhookSecret verifies Stripe-Signature headers on incoming events.
	WebhookSecret string
	// FrontendURL is the base for checkout success/cancel redirects.
	FrontendURL string
}

// CheckoutPro creates a Stripe Checkout session upgrading the user to PRO and
// returns its hosted URL. A Stripe customer is created on first use and
// remembered on the user row.
func (s *SubscriptionService) CheckoutPro(ctx context.Context, userID string) (string, error) {
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.ProPriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(s.FrontendURL + "/subscribe/success"),
		CancelURL:  stripe.String(s.FrontendURL + "/subscribe/cancel"),
	}
	params.Context = ctx

	sess, err := s.Stripe.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// Status returns the user's current tier.
func (s *SubscriptionService) Status(ctx context.Context, userID string) (domain.Tier, error) {
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return user.Tier, nil
}

// HandleWebhook verifies and applies a Stripe event. Completed checkouts
// promote the customer to PRO; subscription deletions demote back to BASIC.
// Unrecognized event types are acknowledged and ignored.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.WebhookSecret)
	if err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.promote(ctx, &sess)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.demote(ctx, &sub)
	default:
		log.Debug().Str("type", string(event.Type)).Msg("ignoring stripe event")
		return nil
	}
}

func (s *SubscriptionService) promote(ctx context.Context, sess *stripe.CheckoutSession) error {
	if sess.Customer == nil {
		return fmt.Errorf("checkout session %s has no customer", sess.ID)
	}
	user, err := repo.GetUserByStripeCustomer(ctx, s.DB, sess.Customer.ID)
	if err != nil {
		if isNotFound(err) {
			// Customer created outside this system; nothing to promote.
			log.Warn().Str("customer_id", sess.Customer.ID).Msg("checkout completed for unknown customer")
			return nil
		}
		return err
	}

	var subID *string
	if sess.Subscription != nil {
		subID = &sess.Subscription.ID
	}
	if err := repo.UpdateUserTier(ctx, s.DB, user.ID, domain.TierPro, subID); err != nil {
		return err
	}
	log.Info().Str("user_id", user.ID).Msg("user upgraded to PRO")
	return nil
}

func (s *SubscriptionService) demote(ctx context.Context, sub *stripe.Subscription) error {
	user, err := repo.GetUserByStripeSubscription(ctx, s.DB, sub.ID)
	if err != nil {
		if isNotFound(err) {
			log.Warn().Str("subscription_id", sub.ID).Msg("deletion event for unknown subscription")
			return nil
		}
		return err
	}
	if err := repo.UpdateUserTier(ctx, s.DB, user.ID, domain.TierBasic, nil); err != nil {
		return err
	}
	log.Info().Str("user_id", user.ID).Msg("user downgraded to BASIC")
	return nil
}

// ensureCustomer returns the user's Stripe customer id, creating the customer
// on first use.
func (s *SubscriptionService) ensureCustomer(ctx context.Context, user *domain.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Phone: stripe.String(user.Mobile),
	}
	params.Context = ctx
	params.AddMetadata("user_id", user.ID)

	cust, err := s.Stripe.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := repo.UpdateUserStripeCustomer(ctx, s.DB, user.ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}
