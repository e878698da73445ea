// Package payments wraps the Stripe integration.
//
// This file wraps the two Stripe surfaces the service touches: webhook
// signature verification with typed payload decoding, and Checkout session
// creation for the three plans.
//
// Verification is terminal: a payload that fails the signature check is
// rejected outright, never retried or partially processed. Decoding is
// deliberately narrow; only the fields the entitlement projector consumes
// are unmarshaled from the event's raw JSON.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadfeed/go-leads-backend/internal/config"
	"github.com/leadfeed/go-leads-backend/internal/domain"
)

// Event types the projector reacts to. Everything else is acknowledged and
// ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Checkout modes as they appear in the session payload.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

var (
	// ErrMissingSignature is returned when the Stripe-Signature header is absent.
	ErrMissingSignature = errors.New("payments: missing Stripe-Signature header")

	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("payments: webhook signature verification failed")
)

// VerifyWebhook checks the payload against the signature header and returns
// the decoded event. The error distinguishes a missing header from a bad
// signature so handlers can log them apart; both are terminal.
func VerifyWebhook(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	if sigHeader == "" {
		return stripe.Event{}, ErrMissingSignature
	}
	evt, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return evt, nil
}

// EventMetadata is the metadata our checkout flow stamps on sessions and
// subscriptions.
type EventMetadata struct {
	UserID   string `json:"userId"`
	PlanType string `json:"planType"`
}

// CheckoutSessionPayload is the slice of checkout.session.completed this
// service consumes. Customer and Subscription arrive as plain IDs on
// webhook deliveries.
type CheckoutSessionPayload struct {
	Mode         string        `json:"mode"`
	Customer     string        `json:"customer"`
	Subscription string        `json:"subscription"`
	Metadata     EventMetadata `json:"metadata"`
}

// SubscriptionPayload is the slice of customer.subscription.* events this
// service consumes.
type SubscriptionPayload struct {
	Status   string        `json:"status"`
	Metadata EventMetadata `json:"metadata"`
}

// DecodeCheckoutSession unmarshals a checkout.session.completed event body.
func DecodeCheckoutSession(evt stripe.Event) (CheckoutSessionPayload, error) {
	var p CheckoutSessionPayload
	if err := json.Unmarshal(evt.Data.Raw, &p); err != nil {
		return CheckoutSessionPayload{}, fmt.Errorf("payments: decode checkout session: %w", err)
	}
	return p, nil
}

// DecodeSubscription unmarshals a customer.subscription.* event body.
func DecodeSubscription(evt stripe.Event) (SubscriptionPayload, error) {
	var p SubscriptionPayload
	if err := json.Unmarshal(evt.Data.Raw, &p); err != nil {
		return SubscriptionPayload{}, fmt.Errorf("payments: decode subscription: %w", err)
	}
	return p, nil
}

// CheckoutCreator creates a Checkout session and returns its redirect URL.
// Abstracted so handler tests can stub session creation.
type CheckoutCreator interface {
	CreateSession(ctx context.Context, userID, planType string) (string, error)
}

// CheckoutClient creates real Stripe Checkout sessions.
type CheckoutClient struct {
	Cfg config.StripeConfig
}

// CreateSession builds a Checkout session for the given plan. One-time passes
// (day, week) use payment mode; the monthly plan opens a subscription and
// stamps the user onto the subscription metadata so later lifecycle events
// can be attributed.
func (c *CheckoutClient) CreateSession(ctx context.Context, userID, planType string) (string, error) {
	tr := otel.Tracer("payments/CheckoutClient")
	ctx, span := tr.Start(ctx, "CreateSession",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("plan.type", planType),
		),
	)
	defer span.End()

	var (
		priceID string
		mode    string
	)
	switch planType {
	case domain.PlanDay:
		priceID, mode = c.Cfg.PriceIDDay, ModePayment
	case domain.PlanWeek:
		priceID, mode = c.Cfg.PriceIDWeek, ModePayment
	case domain.PlanMonth:
		priceID, mode = c.Cfg.PriceIDMonth, ModeSubscription
	default:
		return "", fmt.Errorf("payments: unknown plan type %q", planType)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(mode),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(c.Cfg.AppBaseURL + "/leads?checkout=success"),
		CancelURL:  stripe.String(c.Cfg.AppBaseURL + "/pricing?checkout=cancelled"),
	}
	params.Context = ctx
	params.AddMetadata("userId", userID)
	params.AddMetadata("planType", planType)
	if mode == ModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": userID, "planType": planType},
		}
	}

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("payments: create checkout session: %w", err)
	}
	return s.URL, nil
}
