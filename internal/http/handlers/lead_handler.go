// Lead HTTP handlers.
//
// This file exposes REST endpoints for the lead feed and per-user lead
// annotations:
//   - GET  /leads                   (entitlement-gated feed, ETag support)
//   - GET  /leads/preview           (public, author identity redacted)
//   - POST /leads/{id}/icebreakers  (entitlement-gated opener generation)
//   - POST /leads/{id}/save         (entitlement-gated annotation upsert)
//   - GET  /me/leads                (caller's annotated leads)
//   - GET  /me/access               (resolved entitlement)
//   - POST /checkout                (create a payment session)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/leadfeed/go-leads-backend/internal/domain"
	"github.com/leadfeed/go-leads-backend/internal/payments"
	"github.com/leadfeed/go-leads-backend/internal/services"
	"github.com/leadfeed/go-leads-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// LeadFeedService defines lead feed reads and annotations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type LeadFeedService interface {
	// List returns up to limit leads for the niche, newest first.
	List(ctx context.Context, niche string, limit int) ([]domain.Lead, error)
	// Preview returns the newest leads with author identity redacted.
	Preview(ctx context.Context) ([]domain.Lead, error)
	// Icebreakers drafts opener messages for a lead.
	Icebreakers(ctx context.Context, leadID string) ([]string, error)
	// Save upserts a saved/contacted/hidden annotation for (userID, leadID).
	Save(ctx context.Context, userID, leadID, status string, notes *string) (*domain.UserLead, error)
	// SavedLeads returns the user's annotations, optionally filtered by status.
	SavedLeads(ctx context.Context, userID, status string) ([]domain.UserLead, error)
	// FeedStats returns feed aggregates for conditional GET support.
	FeedStats(ctx context.Context, niche string) (int64, *time.Time, error)
}

// AccessService defines entitlement projection and resolution.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccessService interface {
	// Apply projects one verified payment event onto the access record.
	Apply(ctx context.Context, evt stripe.Event) error
	// Resolve computes the effective access verdict for a user.
	Resolve(ctx context.Context, userID string) (services.Access, error)
}

// Ingestor defines raw post batch intake.
type Ingestor interface {
	// Ingest validates, classifies, and stores one batch of posts.
	Ingest(ctx context.Context, posts []services.RawPost) (services.IngestResult, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for leads, entitlements, intake, and
// checkout. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	leadSvc   LeadFeedService
	accessSvc AccessService
	ingestSvc Ingestor
	checkout  payments.CheckoutCreator

	// ingestSecret guards the ingest webhook; empty disables the check.
	ingestSecret string
	// webhookSecret verifies payment webhook signatures.
	webhookSecret string
}

// New constructs and returns a Handlers instance bound to the given services.
func New(leadSvc LeadFeedService, accessSvc AccessService, ingestSvc Ingestor, checkout payments.CheckoutCreator, ingestSecret, webhookSecret string) *Handlers {
	return &Handlers{
		leadSvc:       leadSvc,
		accessSvc:     accessSvc,
		ingestSvc:     ingestSvc,
		checkout:      checkout,
		ingestSecret:  ingestSecret,
		webhookSecret: webhookSecret,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// requireAccess resolves the caller's entitlement and aborts with 403 when it
// does not grant access. Returns false when the request was aborted.
func (h *Handlers) requireAccess(c *gin.Context) bool {
	access, err := h.accessSvc.Resolve(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not resolve access")
		return false
	}
	if !access.Active() {
		fail(c, http.StatusForbidden, ErrCodePaymentRequired, "active pass or subscription required")
		return false
	}
	return true
}

//
// DTOs
//

// SaveLeadRequest is the JSON payload for annotating a lead.
type SaveLeadRequest struct {
	// Status is one of saved, contacted, hidden.
	Status string `json:"status" binding:"required" example:"saved"`
	// Notes optionally attaches free-form text to the annotation.
	Notes *string `json:"notes,omitempty" example:"pinged on Monday"`
}

// CheckoutRequest is the JSON payload for creating a payment session.
type CheckoutRequest struct {
	// Plan is one of day, week, month.
	Plan string `json:"plan" binding:"required" example:"week"`
}

// IcebreakersResponse wraps generated opener messages.
type IcebreakersResponse struct {
	Icebreakers []string `json:"icebreakers"`
}

// LeadsResponse wraps a slice of leads.
type LeadsResponse struct {
	Leads []domain.Lead `json:"leads"`
	Count int           `json:"count"`
}

//
// Handlers
//

// ListLeads godoc
// @ID          listLeads
// @Summary     List leads (entitlement-gated)
// @Description Returns the newest leads, optionally filtered by niche. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Leads
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"      example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches" example(W/\"abc123\")
// @Param       niche          query   string  false "Niche filter"               Enums(writing, video, dev, all)
// @Param       limit          query   int     false "Max results"                minimum(1)
//
// @Success     200  {object} handlers.LeadsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Payment required"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads [get]
func (h *Handlers) ListLeads(c *gin.Context) {
	ctx := c.Request.Context()
	if !h.requireAccess(c) {
		return
	}

	niche := strings.ToLower(strings.TrimSpace(c.Query("niche")))
	limit := utils.AtoiDefault(c.Query("limit"), 0)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.leadSvc.FeedStats(ctx, niche); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"leads:%s:%d:%d"`, niche, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	leads, err := h.leadSvc.List(ctx, niche, limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidNiche) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, LeadsResponse{Leads: leads, Count: len(leads)})
}

// PreviewLeads godoc
// @ID          previewLeads
// @Summary     Preview leads (public)
// @Description Returns the newest leads with author identity redacted. No entitlement required.
// @Tags        Leads
// @Produce     json
//
// @Success     200  {object} handlers.LeadsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads/preview [get]
func (h *Handlers) PreviewLeads(c *gin.Context) {
	leads, err := h.leadSvc.Preview(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, LeadsResponse{Leads: leads, Count: len(leads)})
}

// Icebreakers godoc
// @ID          leadIcebreakers
// @Summary     Generate opener messages for a lead
// @Description Drafts up to three short opener DMs referencing the lead's post.
// @Tags        Leads
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
// @Param       id         path    string  true  "Lead ID (UUID)"        format(uuid)
//
// @Success     200  {object} handlers.IcebreakersResponse
// @Failure     403  {object} handlers.ErrorResponse "Payment required"
// @Failure     404  {object} handlers.ErrorResponse "Lead not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads/{id}/icebreakers [post]
func (h *Handlers) Icebreakers(c *gin.Context) {
	if !h.requireAccess(c) {
		return
	}

	lines, err := h.leadSvc.Icebreakers(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrLeadNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "lead not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, IcebreakersResponse{Icebreakers: lines})
}

// SaveLead godoc
// @ID          saveLead
// @Summary     Annotate a lead
// @Description Records a saved/contacted/hidden annotation for the caller; re-saving overwrites status and notes.
// @Tags        Leads
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
// @Param       id         path    string  true  "Lead ID (UUID)"        format(uuid)
// @Param       body       body    handlers.SaveLeadRequest  true  "Annotation payload"
//
// @Success     200  {object} domain.UserLead
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Payment required"
// @Failure     404  {object} handlers.ErrorResponse "Lead not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads/{id}/save [post]
func (h *Handlers) SaveLead(c *gin.Context) {
	if !h.requireAccess(c) {
		return
	}

	var req SaveLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ul, err := h.leadSvc.Save(c.Request.Context(), userID(c), c.Param("id"), req.Status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrLeadNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "lead not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ul)
}

// MyLeads godoc
// @ID          myLeads
// @Summary     List the caller's annotated leads
// @Description Returns the caller's saved/contacted/hidden leads, optionally filtered by status.
// @Tags        Me
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
// @Param       status     query   string  false "Status filter"         Enums(saved, contacted, hidden)
//
// @Success     200  {array}  domain.UserLead
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /me/leads [get]
func (h *Handlers) MyLeads(c *gin.Context) {
	items, err := h.leadSvc.SavedLeads(c.Request.Context(), userID(c), c.Query("status"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// MyAccess godoc
// @ID          myAccess
// @Summary     Resolve the caller's entitlement
// @Description Returns the caller's effective access: active, expired, or none.
// @Tags        Me
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
//
// @Success     200  {object} services.Access
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /me/access [get]
func (h *Handlers) MyAccess(c *gin.Context) {
	access, err := h.accessSvc.Resolve(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not resolve access")
		return
	}
	ok(c, http.StatusOK, access)
}

// CreateCheckout godoc
// @ID          createCheckout
// @Summary     Create a payment session
// @Description Creates a Checkout session for the requested plan and returns its redirect URL.
// @Tags        Billing
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
// @Param       body       body    handlers.CheckoutRequest  true  "Checkout payload"
//
// @Success     200  {object} map[string]string
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Checkout failed"
// @Router      /checkout [post]
func (h *Handlers) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	plan := strings.ToLower(strings.TrimSpace(req.Plan))
	switch plan {
	case domain.PlanDay, domain.PlanWeek, domain.PlanMonth:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, services.ErrInvalidPlan.Error())
		return
	}

	url, err := h.checkout.CreateSession(c.Request.Context(), userID(c), plan)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCheckoutFailed, "could not create checkout session")
		return
	}
	ok(c, http.StatusOK, gin.H{"url": url})
}
