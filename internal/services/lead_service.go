// Package services: LeadService.
//
// This file implements LeadService, the read and annotation side of the lead
// feed: niche-filtered listing, the public redacted preview, opener
// generation for a single lead, and per-user saved/contacted/hidden
// annotations.

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/leadfeed/go-leads-backend/internal/domain"
	"github.com/leadfeed/go-leads-backend/internal/llm"
	"github.com/leadfeed/go-leads-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// redacted author placeholders for the public preview
const (
	redactedName   = "••••••••"
	redactedHandle = "@••••••••"
)

// LeadService coordinates lead feed reads and per-user annotations.
type LeadService struct {
	DB         *gorm.DB
	Classifier llm.Classifier

	// PreviewLimit caps the public preview; MaxLimit caps ?limit= on the feed.
	PreviewLimit int
	MaxLimit     int
}

// List returns up to limit leads for the niche, newest first. Niche "" and
// "all" disable the filter; anything else must be a known niche. The limit
// is clamped to MaxLimit.
func (s *LeadService) List(ctx context.Context, niche string, limit int) ([]domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("feed.niche", niche),
			attribute.Int("feed.limit", limit),
		),
	)
	defer span.End()

	niche = strings.ToLower(strings.TrimSpace(niche))
	if niche != "" && niche != "all" && !domain.ValidNiche(niche) {
		return nil, ErrInvalidNiche
	}
	if s.MaxLimit > 0 && (limit <= 0 || limit > s.MaxLimit) {
		limit = s.MaxLimit
	}
	return repo.ListLeadsByNiche(ctx, s.DB, niche, limit)
}

// Preview returns the newest leads with author identity blanked out, for the
// unauthenticated landing page.
func (s *LeadService) Preview(ctx context.Context) ([]domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Preview")
	defer span.End()

	limit := s.PreviewLimit
	if limit <= 0 {
		limit = 10
	}
	leads, err := repo.ListLeadsByNiche(ctx, s.DB, "", limit)
	if err != nil {
		return nil, err
	}
	name, handle := redactedName, redactedHandle
	for i := range leads {
		leads[i].AuthorName = &name
		leads[i].AuthorHandle = &handle
		leads[i].AuthorAvatar = nil
		leads[i].AuthorBio = nil
	}
	return leads, nil
}

// Icebreakers drafts opener messages for the lead. The model's failure
// policy applies, so the slice is never empty on success.
func (s *LeadService) Icebreakers(ctx context.Context, leadID string) ([]string, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Icebreakers",
		trace.WithAttributes(attribute.String("lead.id", leadID)),
	)
	defer span.End()

	lead, err := repo.GetLead(ctx, s.DB, leadID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return s.Classifier.GenerateIcebreakers(ctx, lead.Content, lead.Niche), nil
}

// Save records a saved/contacted/hidden annotation for (userID, leadID).
// Re-saving overwrites the previous status and notes.
func (s *LeadService) Save(ctx context.Context, userID, leadID, status string, notes *string) (*domain.UserLead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("lead.id", leadID),
		),
	)
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case domain.UserLeadSaved, domain.UserLeadContacted, domain.UserLeadHidden:
	default:
		return nil, ErrInvalidStatus
	}

	if _, err := repo.GetLead(ctx, s.DB, leadID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return repo.SaveLeadForUser(ctx, s.DB, userID, leadID, status, notes)
}

// SavedLeads returns the user's annotated leads, optionally filtered by
// status.
func (s *LeadService) SavedLeads(ctx context.Context, userID, status string) ([]domain.UserLead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "SavedLeads",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" {
		switch status {
		case domain.UserLeadSaved, domain.UserLeadContacted, domain.UserLeadHidden:
		default:
			return nil, ErrInvalidStatus
		}
	}
	return repo.ListUserLeads(ctx, s.DB, userID, status)
}

// FeedStats exposes feed aggregates for conditional GET support.
func (s *LeadService) FeedStats(ctx context.Context, niche string) (int64, *time.Time, error) {
	return repo.LeadsStats(ctx, s.DB, strings.ToLower(strings.TrimSpace(niche)))
}
