package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/leadfeed/go-leads-backend/internal/domain"
	"github.com/leadfeed/go-leads-backend/internal/services"
)

// ----- Fakes -----

type fakeLeadSvc struct {
	listNiche string
	listLimit int
	leads     []domain.Lead
	listErr   error

	previewLeads []domain.Lead
	previewErr   error

	openers    []string
	openersErr error

	saveUserID string
	saveLeadID string
	saveStatus string
	saveNotes  *string
	saved      *domain.UserLead
	saveErr    error

	savedItems []domain.UserLead
	savedErr   error

	statsCount int64
	statsTS    *time.Time
	statsErr   error
}

func (f *fakeLeadSvc) List(ctx context.Context, niche string, limit int) ([]domain.Lead, error) {
	f.listNiche, f.listLimit = niche, limit
	return f.leads, f.listErr
}

func (f *fakeLeadSvc) Preview(ctx context.Context) ([]domain.Lead, error) {
	return f.previewLeads, f.previewErr
}

func (f *fakeLeadSvc) Icebreakers(ctx context.Context, leadID string) ([]string, error) {
	return f.openers, f.openersErr
}

func (f *fakeLeadSvc) Save(ctx context.Context, userID, leadID, status string, notes *string) (*domain.UserLead, error) {
	f.saveUserID, f.saveLeadID, f.saveStatus, f.saveNotes = userID, leadID, status, notes
	return f.saved, f.saveErr
}

func (f *fakeLeadSvc) SavedLeads(ctx context.Context, userID, status string) ([]domain.UserLead, error) {
	return f.savedItems, f.savedErr
}

func (f *fakeLeadSvc) FeedStats(ctx context.Context, niche string) (int64, *time.Time, error) {
	return f.statsCount, f.statsTS, f.statsErr
}

type fakeAccessSvc struct {
	access     services.Access
	resolveErr error

	applied  []stripe.Event
	applyErr error
}

func (f *fakeAccessSvc) Apply(ctx context.Context, evt stripe.Event) error {
	f.applied = append(f.applied, evt)
	return f.applyErr
}

func (f *fakeAccessSvc) Resolve(ctx context.Context, userID string) (services.Access, error) {
	return f.access, f.resolveErr
}

type fakeIngestor struct {
	gotPosts []services.RawPost
	result   services.IngestResult
	err      error
}

func (f *fakeIngestor) Ingest(ctx context.Context, posts []services.RawPost) (services.IngestResult, error) {
	f.gotPosts = posts
	return f.result, f.err
}

type fakeCheckout struct {
	userID string
	plan   string
	url    string
	err    error
}

func (f *fakeCheckout) CreateSession(ctx context.Context, userID, planType string) (string, error) {
	f.userID, f.plan = userID, planType
	return f.url, f.err
}

// ----- Helpers -----

func activeAccess() services.Access {
	return services.Access{Status: services.AccessActive, IsSubscription: true}
}

func noAccess() services.Access {
	return services.Access{Status: services.AccessNone}
}

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/leads", h.ListLeads)
	r.GET("/leads/preview", h.PreviewLeads)
	r.POST("/leads/:id/icebreakers", h.Icebreakers)
	r.POST("/leads/:id/save", h.SaveLead)
	r.GET("/me/leads", h.MyLeads)
	r.GET("/me/access", h.MyAccess)
	r.POST("/checkout", h.CreateCheckout)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ----- Tests -----

func TestListLeads_RequiresEntitlement(t *testing.T) {
	h := New(&fakeLeadSvc{}, &fakeAccessSvc{access: noAccess()}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")
	w := doJSON(t, newRouter(h), http.MethodGet, "/leads", "", nil)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodePaymentRequired {
		t.Fatalf("expected payment_required, got %q", er.Code)
	}
}

func TestListLeads_ReturnsFeedAndETag(t *testing.T) {
	ts := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	ls := &fakeLeadSvc{
		leads:      []domain.Lead{{ID: "l1", Niche: domain.NicheDev}},
		statsCount: 1,
		statsTS:    &ts,
	}
	h := New(ls, &fakeAccessSvc{access: activeAccess()}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")
	r := newRouter(h)

	w := doJSON(t, r, http.MethodGet, "/leads?niche=dev&limit=5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ls.listNiche != "dev" || ls.listLimit != 5 {
		t.Fatalf("query not forwarded: niche=%q limit=%d", ls.listNiche, ls.listLimit)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	var resp LeadsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Count != 1 || resp.Leads[0].ID != "l1" {
		t.Fatalf("unexpected body: %+v", resp)
	}

	// conditional re-request
	w = doJSON(t, r, http.MethodGet, "/leads?niche=dev&limit=5", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
}

func TestListLeads_InvalidNiche(t *testing.T) {
	ls := &fakeLeadSvc{listErr: services.ErrInvalidNiche}
	h := New(ls, &fakeAccessSvc{access: activeAccess()}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodGet, "/leads?niche=cooking", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestPreviewLeads_PublicNoGate(t *testing.T) {
	name := "••••••••"
	ls := &fakeLeadSvc{previewLeads: []domain.Lead{{ID: "l1", AuthorName: &name}}}
	h := New(ls, &fakeAccessSvc{access: noAccess()}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodGet, "/leads/preview", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview must not be gated: status=%d", w.Code)
	}
}

func TestIcebreakers(t *testing.T) {
	ls := &fakeLeadSvc{openers: []string{"Hi!", "Saw your post"}}
	h := New(ls, &fakeAccessSvc{access: activeAccess()}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodPost, "/leads/l1/icebreakers", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp IcebreakersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Icebreakers) != 2 {
		t.Fatalf("unexpected openers: %#v", resp.Icebreakers)
	}
}

func TestIcebreakers_NotFound(t *testing.T) {
	ls := &fakeLeadSvc{openersErr: services.ErrLeadNotFound}
	h := New(ls, &fakeAccessSvc{access: activeAccess()}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodPost, "/leads/missing/icebreakers", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestSaveLead(t *testing.T) {
	ls := &fakeLeadSvc{saved: &domain.UserLead{ID: "ul1", Status: domain.UserLeadSaved}}
	h := New(ls, &fakeAccessSvc{access: activeAccess()}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")

	body := `{"status":"saved","notes":"looks promising"}`
	w := doJSON(t, newRouter(h), http.MethodPost, "/leads/l1/save", body, map[string]string{"X-User-ID": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ls.saveUserID != "u1" || ls.saveLeadID != "l1" || ls.saveStatus != "saved" {
		t.Fatalf("args not forwarded: %+v", ls)
	}
	if ls.saveNotes == nil || *ls.saveNotes != "looks promising" {
		t.Fatalf("notes not forwarded: %v", ls.saveNotes)
	}
}

func TestSaveLead_InvalidStatus(t *testing.T) {
	ls := &fakeLeadSvc{saveErr: services.ErrInvalidStatus}
	h := New(ls, &fakeAccessSvc{access: activeAccess()}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodPost, "/leads/l1/save", `{"status":"starred"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestMyAccess(t *testing.T) {
	exp := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	plan := domain.PlanWeek
	as := &fakeAccessSvc{access: services.Access{Status: services.AccessActive, PlanType: &plan, ExpiresAt: &exp}}
	h := New(&fakeLeadSvc{}, as, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodGet, "/me/access", "", map[string]string{"X-User-ID": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got services.Access
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.Status != services.AccessActive || got.PlanType == nil || *got.PlanType != plan {
		t.Fatalf("unexpected access: %+v", got)
	}
}

func TestCreateCheckout(t *testing.T) {
	co := &fakeCheckout{url: "https://checkout.stripe.com/c/sess_1"}
	h := New(&fakeLeadSvc{}, &fakeAccessSvc{}, &fakeIngestor{}, co, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodPost, "/checkout", `{"plan":"week"}`, map[string]string{"X-User-ID": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if co.userID != "u1" || co.plan != "week" {
		t.Fatalf("args not forwarded: %+v", co)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp["url"] != co.url {
		t.Fatalf("unexpected url: %q", resp["url"])
	}
}

func TestCreateCheckout_InvalidPlan(t *testing.T) {
	h := New(&fakeLeadSvc{}, &fakeAccessSvc{}, &fakeIngestor{}, &fakeCheckout{}, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodPost, "/checkout", `{"plan":"year"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateCheckout_ProviderFailure(t *testing.T) {
	co := &fakeCheckout{err: errors.New("stripe down")}
	h := New(&fakeLeadSvc{}, &fakeAccessSvc{}, &fakeIngestor{}, co, "", "whsec")

	w := doJSON(t, newRouter(h), http.MethodPost, "/checkout", `{"plan":"day"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
