// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the UserLead
// model (per-user saved/contacted/hidden annotations on leads).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leadfeed/go-leads-backend/internal/domain"
)

// SaveLeadForUser records (or re-records) an annotation for (userID, leadID).
// The write is an upsert on the (user_id, lead_id) pair: saving the same
// lead again just overwrites status and notes.
func SaveLeadForUser(ctx context.Context, db *gorm.DB, userID, leadID, status string, notes *string) (*domain.UserLead, error) {
	ul := &domain.UserLead{
		ID:        uuid.NewString(),
		UserID:    userID,
		LeadID:    leadID,
		Status:    status,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lead_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "notes", "updated_at"}),
		}).
		Create(ul).Error
	if err != nil {
		return nil, err
	}
	return ul, nil
}

// ListUserLeads returns the user's annotations ordered by creation time
// descending, preloading the annotated lead. An empty status disables the
// status filter.
func ListUserLeads(ctx context.Context, db *gorm.DB, userID, status string) ([]domain.UserLead, error) {
	q := db.WithContext(ctx).
		Preload("Lead").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.UserLead
	err := q.Find(&out).Error
	return out, err
}
