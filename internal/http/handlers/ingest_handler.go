// Ingest webhook handler.
//
// POST /webhooks/ingest receives raw post batches from the scraper. The
// endpoint is optionally guarded by a shared bearer secret; when configured,
// requests without it are rejected before any body processing.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leadfeed/go-leads-backend/internal/services"
)

// IngestRequest is the JSON payload delivered by the scraper. Posts is a
// pointer so a missing or null field can be told apart from an empty batch.
type IngestRequest struct {
	Posts *[]services.RawPost `json:"posts"`
}

// IngestResponse reports per-batch counters. Processed == Inserted + Skipped.
type IngestResponse struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
	Inserted  int  `json:"inserted"`
	Skipped   int  `json:"skipped"`
}

// IngestPosts godoc
// @ID          ingestPosts
// @Summary     Ingest raw posts
// @Description Validates, classifies, and stores a batch of scraped posts. Partial failures are reported as skipped, never as batch errors.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer ingest secret"
// @Param       body           body    handlers.IngestRequest  true  "Posts batch"
//
// @Success     200  {object} handlers.IngestResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Ingest failed"
// @Router      /webhooks/ingest [post]
func (h *Handlers) IngestPosts(c *gin.Context) {
	if h.ingestSecret != "" {
		auth := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found || token != h.ingestSecret {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid ingest credentials")
			return
		}
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Posts == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must contain a posts array")
		return
	}

	res, err := h.ingestSvc.Ingest(c.Request.Context(), *req.Posts)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeIngestFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, IngestResponse{
		Success:   true,
		Processed: res.Processed,
		Inserted:  res.Inserted,
		Skipped:   res.Skipped,
	})
}
