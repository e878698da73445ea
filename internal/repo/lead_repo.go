// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lead model.
//
// All functions accept a *gorm.DB handle, making them safe for use within
// transactions or connection-scoped operations. They follow the "thin
// repository" approach: no business logic, only CRUD persistence and query
// composition.
//
// Error semantics:
//   - When a lead is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// The central contract is UpsertLead: an insert-if-absent keyed by
// source_url, issued as a single conditional write (INSERT ... ON CONFLICT
// DO NOTHING) so concurrent batches racing on the same source_url cannot
// both insert. A lost race is not an error; it returns (nil, nil).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leadfeed/go-leads-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertLead inserts lead unless a row with the same source_url already
// exists. The dedup decision is made by the storage engine in the same
// statement as the insert; there is deliberately no read-before-write.
//
// Returns:
//   - (*domain.Lead, nil) when the row was newly inserted,
//   - (nil, nil) when a lead with that source_url already existed,
//   - (nil, err) on storage failure.
//
// The caller supplies all content fields; ID and CreatedAt are assigned here.
func UpsertLead(ctx context.Context, db *gorm.DB, lead *domain.Lead) (*domain.Lead, error) {
	lead.ID = uuid.NewString()
	lead.CreatedAt = time.Now().UTC()

	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_url"}},
			DoNothing: true,
		}).
		Create(lead)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Conflict on source_url: an identical post was already ingested.
		return nil, nil
	}
	return lead, nil
}

// ListLeadsByNiche returns up to limit leads ordered by creation time
// descending (most recent first). An empty niche or "all" disables the
// niche filter. A limit <= 0 falls back to 50.
func ListLeadsByNiche(ctx context.Context, db *gorm.DB, niche string, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	q := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if niche != "" && niche != "all" {
		q = q.Where("niche = ?", niche)
	}
	var out []domain.Lead
	err := q.Find(&out).Error
	return out, err
}

// GetLead fetches a single lead by ID. If the record does not exist, it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func GetLead(ctx context.Context, db *gorm.DB, id string) (*domain.Lead, error) {
	var l domain.Lead
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// LeadsStats returns aggregate metadata for the lead feed: the total number
// of rows and the maximum CreatedAt timestamp among them. Used for weak ETag
// generation in the HTTP layer. When there are no leads, the returned count
// is 0 and maxCreatedAt is nil.
func LeadsStats(ctx context.Context, db *gorm.DB, niche string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Lead{})
	if niche != "" && niche != "all" {
		q = q.Where("niche = ?", niche)
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
