// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// UserAccessState model, the single per-user entitlement record.
//
// Every mutation here is an absolute assignment of the fields named by one
// webhook branch. That property is what makes replayed payment events
// converge to the same row: applying the same event twice writes the same
// values twice. Writes go through an upsert on user_id so the first
// qualifying event creates the row and later events update it, without a
// read-modify-write cycle.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leadfeed/go-leads-backend/internal/domain"
)

// GetAccessState fetches the access record for userID. If the user has no
// record yet, it returns ErrNotFound.
func GetAccessState(ctx context.Context, db *gorm.DB, userID string) (*domain.UserAccessState, error) {
	var s domain.UserAccessState
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// upsertAccessState inserts the row for state.UserID or, when it already
// exists, overwrites exactly the given columns. Columns not listed keep
// their stored value, which is how the pass and subscription "modes"
// coexist on one record.
func upsertAccessState(ctx context.Context, db *gorm.DB, state *domain.UserAccessState, columns []string) error {
	state.ID = uuid.NewString()
	state.CreatedAt = time.Now().UTC()

	assignments := append([]string{"updated_at"}, columns...)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(assignments),
		}).
		Create(state).Error
}

// SetPassAccess records a one-time pass purchase: plan type and absolute
// expiry are set, and any subscription verdict from a previous mode is
// cleared so a fresh pass cannot inherit a stale subscription state.
func SetPassAccess(ctx context.Context, db *gorm.DB, userID, planType string, expiresAt time.Time) error {
	state := &domain.UserAccessState{
		UserID:             userID,
		SubscriptionStatus: domain.SubscriptionNone,
		PlanType:           &planType,
		AccessExpiresAt:    &expiresAt,
	}
	return upsertAccessState(ctx, db, state, []string{
		"subscription_status", "plan_type", "access_expires_at",
		"stripe_customer_id", "stripe_subscription_id",
	})
}

// SetSubscriptionAccess records a completed subscription checkout: status
// becomes active, the plan is the monthly one, and the provider references
// are stored for later lifecycle events.
func SetSubscriptionAccess(ctx context.Context, db *gorm.DB, userID, customerID, subscriptionID string) error {
	plan := domain.PlanMonth
	state := &domain.UserAccessState{
		UserID:               userID,
		SubscriptionStatus:   domain.SubscriptionActive,
		PlanType:             &plan,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: subscriptionID,
	}
	return upsertAccessState(ctx, db, state, []string{
		"subscription_status", "plan_type",
		"stripe_customer_id", "stripe_subscription_id",
	})
}

// SetSubscriptionStatus overwrites only the subscription status, leaving any
// pass fields untouched. Used for subscription updated/deleted events.
func SetSubscriptionStatus(ctx context.Context, db *gorm.DB, userID, status string) error {
	state := &domain.UserAccessState{
		UserID:             userID,
		SubscriptionStatus: status,
	}
	return upsertAccessState(ctx, db, state, []string{"subscription_status"})
}
