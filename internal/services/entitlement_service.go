// Package services: EntitlementService.
//
// This file implements EntitlementService, which owns both sides of the
// entitlement lifecycle: projecting verified payment events onto the per-user
// access record (Apply) and resolving that record into an effective access
// verdict (Resolve).
//
// Projection is a pure transition table. Every branch writes absolute values
// derived only from the event, so replayed deliveries converge on the same
// stored state without an idempotency ledger.
//
// Resolution precedence: a live subscription (active or trialing) grants
// access regardless of any pass expiry; otherwise a pass grants access while
// its expiry is strictly in the future. Time is read through an injected
// clock so boundary behavior is testable.

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/leadfeed/go-leads-backend/internal/domain"
	"github.com/leadfeed/go-leads-backend/internal/payments"
	"github.com/leadfeed/go-leads-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rs/zerolog/log"
)

// Effective access verdicts returned by Resolve.
const (
	AccessActive  = "active"
	AccessExpired = "expired"
	AccessNone    = "none"
)

// Access is the resolved entitlement for one user.
type Access struct {
	Status         string     `json:"status"` // active | expired | none
	PlanType       *string    `json:"plan_type,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsSubscription bool       `json:"is_subscription"`
}

// Active reports whether the verdict grants access.
func (a Access) Active() bool { return a.Status == AccessActive }

// EntitlementService projects payment events and resolves access.
type EntitlementService struct {
	DB *gorm.DB

	// Now is the clock used for pass expiry math; defaults to time.Now.
	Now func() time.Time
}

func (s *EntitlementService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// passDuration maps a one-time plan to its access window. Unknown plans get
// the shortest window rather than failing the event.
func passDuration(planType string) time.Duration {
	switch planType {
	case domain.PlanWeek:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Apply projects one verified payment event onto the access record. Events
// without an attributable user are logged and dropped; unknown event types
// are ignored. Both count as successful handling so the provider does not
// retry them.
func (s *EntitlementService) Apply(ctx context.Context, evt stripe.Event) error {
	tr := otel.Tracer("services/EntitlementService")
	ctx, span := tr.Start(ctx, "Apply",
		trace.WithAttributes(attribute.String("event.type", string(evt.Type))),
	)
	defer span.End()

	stripeEventsTotal.WithLabelValues(string(evt.Type)).Inc()

	switch string(evt.Type) {
	case payments.EventCheckoutCompleted:
		p, err := payments.DecodeCheckoutSession(evt)
		if err != nil {
			return err
		}
		userID := strings.TrimSpace(p.Metadata.UserID)
		if userID == "" {
			log.Warn().Str("event_type", string(evt.Type)).Msg("payment event without userId metadata, dropping")
			return nil
		}
		if p.Mode == payments.ModeSubscription {
			return repo.SetSubscriptionAccess(ctx, s.DB, userID, p.Customer, p.Subscription)
		}
		plan := strings.ToLower(strings.TrimSpace(p.Metadata.PlanType))
		if plan == "" {
			plan = domain.PlanDay
		}
		expiresAt := s.now().Add(passDuration(plan)).UTC()
		return repo.SetPassAccess(ctx, s.DB, userID, plan, expiresAt)

	case payments.EventSubscriptionUpdated:
		p, err := payments.DecodeSubscription(evt)
		if err != nil {
			return err
		}
		userID := strings.TrimSpace(p.Metadata.UserID)
		if userID == "" {
			log.Warn().Str("event_type", string(evt.Type)).Msg("payment event without userId metadata, dropping")
			return nil
		}
		status := domain.SubscriptionCanceled
		switch p.Status {
		case domain.SubscriptionActive, domain.SubscriptionTrialing:
			status = p.Status
		}
		return repo.SetSubscriptionStatus(ctx, s.DB, userID, status)

	case payments.EventSubscriptionDeleted:
		p, err := payments.DecodeSubscription(evt)
		if err != nil {
			return err
		}
		userID := strings.TrimSpace(p.Metadata.UserID)
		if userID == "" {
			log.Warn().Str("event_type", string(evt.Type)).Msg("payment event without userId metadata, dropping")
			return nil
		}
		return repo.SetSubscriptionStatus(ctx, s.DB, userID, domain.SubscriptionCanceled)

	default:
		// Acknowledged but not projected.
		return nil
	}
}

// Resolve computes the effective access verdict for userID from the stored
// record. A user with no record resolves to none.
func (s *EntitlementService) Resolve(ctx context.Context, userID string) (Access, error) {
	tr := otel.Tracer("services/EntitlementService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return Access{Status: AccessNone}, ErrMissingUser
	}

	state, err := repo.GetAccessState(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Access{Status: AccessNone}, nil
		}
		return Access{}, err
	}

	switch state.SubscriptionStatus {
	case domain.SubscriptionActive, domain.SubscriptionTrialing:
		// A live subscription is always the monthly plan, even when a stale
		// pass plan is still stored on the record.
		plan := domain.PlanMonth
		return Access{
			Status:         AccessActive,
			PlanType:       &plan,
			IsSubscription: true,
		}, nil
	}

	if state.AccessExpiresAt != nil {
		if state.AccessExpiresAt.After(s.now()) {
			return Access{
				Status:    AccessActive,
				PlanType:  state.PlanType,
				ExpiresAt: state.AccessExpiresAt,
			}, nil
		}
		return Access{
			Status:    AccessExpired,
			PlanType:  state.PlanType,
			ExpiresAt: state.AccessExpiresAt,
		}, nil
	}

	return Access{Status: AccessNone}, nil
}
