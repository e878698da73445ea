// Package services: IngestService.
//
// This file implements IngestService, the application-level component that
// turns raw scraped posts into stored leads. Each post is validated,
// classified for hiring intent, and inserted unless a lead with the same
// source URL already exists.
//
// Batch semantics: posts are independent. A post that fails validation,
// classifies as no-intent, loses the dedup race, or hits a storage error is
// counted as skipped; the rest of the batch proceeds. The returned counters
// always satisfy Processed == Inserted + Skipped.
//
// Observability: the batch runs under an OpenTelemetry span; per-post
// outcomes feed the ingest_posts_total counter.

package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/leadfeed/go-leads-backend/internal/domain"
	"github.com/leadfeed/go-leads-backend/internal/llm"
	"github.com/leadfeed/go-leads-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog/log"
)

// RawPost is one scraped post as delivered by the ingest webhook.
type RawPost struct {
	Platform      string  `json:"platform"`
	Content       string  `json:"content"`
	AuthorName    *string `json:"author_name,omitempty"`
	AuthorHandle  *string `json:"author_handle,omitempty"`
	AuthorAvatar  *string `json:"author_avatar,omitempty"`
	AuthorBio     *string `json:"author_bio,omitempty"`
	FollowerCount int     `json:"follower_count,omitempty"`
	SourceURL     string  `json:"source_url"`
}

// IngestResult summarizes one batch. Processed == Inserted + Skipped.
type IngestResult struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
}

// per-post outcomes, the label set of ingest_posts_total
const (
	outcomeInserted  = "inserted"
	outcomeDuplicate = "duplicate"
	outcomeNoIntent  = "no_intent"
	outcomeInvalid   = "invalid"
	outcomeError     = "error"
)

// IngestService coordinates validation, classification, and persistence of
// raw post batches.
type IngestService struct {
	DB         *gorm.DB
	Classifier llm.Classifier

	// Concurrency caps classifier calls in flight per batch; <= 0 means
	// sequential.
	Concurrency int
}

// Ingest processes one batch of raw posts. It never fails the batch for a
// single bad post; the error return is reserved for a canceled context.
func (s *IngestService) Ingest(ctx context.Context, posts []RawPost) (IngestResult, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(attribute.Int("batch.size", len(posts))),
	)
	defer span.End()

	res := IngestResult{Processed: len(posts)}
	if len(posts) == 0 {
		return res, nil
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = 1
	}

	outcomes := make([]string, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range posts {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.processPost(gctx, posts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IngestResult{}, err
	}

	for _, o := range outcomes {
		ingestPostsTotal.WithLabelValues(o).Inc()
		if o == outcomeInserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}

	span.SetAttributes(
		attribute.Int("batch.inserted", res.Inserted),
		attribute.Int("batch.skipped", res.Skipped),
	)
	return res, nil
}

// processPost runs one post through the pipeline and returns its outcome.
func (s *IngestService) processPost(ctx context.Context, p RawPost) string {
	content := strings.TrimSpace(p.Content)
	sourceURL := strings.TrimSpace(p.SourceURL)
	platform := strings.ToLower(strings.TrimSpace(p.Platform))

	if content == "" || sourceURL == "" || !domain.ValidPlatform(platform) || p.FollowerCount < 0 {
		return outcomeInvalid
	}

	verdict := s.Classifier.Classify(ctx, content)
	if !verdict.HasIntent {
		return outcomeNoIntent
	}

	lead := &domain.Lead{
		Platform:      platform,
		Content:       content,
		Niche:         verdict.Niche,
		AuthorName:    p.AuthorName,
		AuthorHandle:  p.AuthorHandle,
		AuthorAvatar:  p.AuthorAvatar,
		AuthorBio:     p.AuthorBio,
		FollowerCount: p.FollowerCount,
		IsHighSignal:  verdict.IsHighSignal,
		SourceURL:     sourceURL,
	}

	inserted, err := repo.UpsertLead(ctx, s.DB, lead)
	if err != nil {
		log.Error().Err(err).Str("source_url", sourceURL).Msg("lead insert failed")
		return outcomeError
	}
	if inserted == nil {
		return outcomeDuplicate
	}
	return outcomeInserted
}
