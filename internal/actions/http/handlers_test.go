package actionshttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightd/insightd/internal/actions"
	"github.com/insightd/insightd/internal/platform/httpx"
	_ "github.com/insightd/insightd/testing"
)

type stubDispatcher struct {
	resp   actions.Response
	code   actions.Code
	params actions.Params
	calls  int
}

func (s *stubDispatcher) Dispatch(_ context.Context, code actions.Code, params actions.Params) actions.Response {
	s.calls++
	s.code = code
	s.params = params
	if s.resp.ActionCode == "" {
		return actions.Response{Success: true, ActionCode: code, Data: map[string]interface{}{}}
	}
	return s.resp
}

type stubEnqueuer struct {
	taskID     string
	err        error
	gotListing string
	gotIssue   string
}

func (s *stubEnqueuer) EnqueueReviewFlag(_ context.Context, listingID, issue string) (string, error) {
	s.gotListing = listingID
	s.gotIssue = issue
	if s.err != nil {
		return "", s.err
	}
	return s.taskID, nil
}

func newTestRouter(d *stubDispatcher, q flagEnqueuer) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, d, q).MountRoutes(r)
	return r
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzePricingEndpoint(t *testing.T) {
	d := &stubDispatcher{}
	router := newTestRouter(d, nil)

	rec := postJSON(router, "/api/pricing/analyze", `{"listing_id":"car001"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, actions.CodePricingAnalyze, d.code)
	assert.Equal(t, actions.Params{ListingID: "car001"}, d.params)

	var resp actions.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, actions.CodePricingAnalyze, resp.ActionCode)
}

func TestApplyPricingEndpoint(t *testing.T) {
	d := &stubDispatcher{}
	router := newTestRouter(d, nil)

	rec := postJSON(router, "/api/pricing/apply", `{"listing_id":"car001","new_price":55}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actions.CodePricingApply, d.code)
	assert.Equal(t, "car001", d.params.ListingID)
	require.NotNil(t, d.params.NewPrice)
	assert.Equal(t, 55.0, *d.params.NewPrice)
}

func TestApplyPricingRejectsMissingPrice(t *testing.T) {
	d := &stubDispatcher{}
	router := newTestRouter(d, nil)

	rec := postJSON(router, "/api/pricing/apply", `{"listing_id":"car001"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 0, d.calls, "invalid requests must not reach the dispatcher")

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Validation Failed", problem.Title)
	assert.Contains(t, problem.Detail, "new_price is required")
}

func TestMalformedBodyIsAProblem(t *testing.T) {
	d := &stubDispatcher{}
	router := newTestRouter(d, nil)

	rec := postJSON(router, "/api/market/analyze", `{"owner_id":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, d.calls)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Detail, "malformed JSON body")
}

func TestMarketAnalyzeEndpoint(t *testing.T) {
	d := &stubDispatcher{}
	router := newTestRouter(d, nil)

	rec := postJSON(router, "/api/market/analyze", `{"owner_id":"user001"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actions.CodeMarketAnalyze, d.code)
	assert.Equal(t, "user001", d.params.OwnerID)
}

func TestMarketAnalyzeIsRateLimited(t *testing.T) {
	d := &stubDispatcher{}
	router := newTestRouter(d, nil)

	last := http.StatusOK
	for i := 0; i < 11; i++ {
		rec := postJSON(router, "/api/market/analyze", `{"owner_id":"user001"}`)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, 10, d.calls)
}

func TestReviewAnalyzeEndpoint(t *testing.T) {
	d := &stubDispatcher{}
	router := newTestRouter(d, nil)

	rec := postJSON(router, "/api/review/analyze", `{"listing_id":"acc001"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actions.CodeReviewAnalyze, d.code)
	assert.Equal(t, "acc001", d.params.ListingID)
}

func TestActionCodesCatalog(t *testing.T) {
	router := newTestRouter(&stubDispatcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/action-codes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var catalog map[string]actions.ActionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	require.Len(t, catalog, 4)
	info := catalog["PRICING_ANALYZE"]
	assert.Equal(t, "PricingAgent", info.Agent)
	assert.True(t, info.HasActionButton)
	assert.Equal(t, []string{"listing_id"}, info.RequiredParams)
}

func TestFlagReviewsEnqueues(t *testing.T) {
	q := &stubEnqueuer{taskID: "task-123"}
	router := newTestRouter(&stubDispatcher{}, q)

	rec := postJSON(router, "/api/reviews/flag", `{"listing_id":"acc001","issue":"dirty"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "acc001", q.gotListing)
	assert.Equal(t, "dirty", q.gotIssue)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"status": "queued", "task_id": "task-123"}, body)
}

func TestFlagReviewsQueueUnavailable(t *testing.T) {
	q := &stubEnqueuer{err: errors.New("redis: connection refused")}
	router := newTestRouter(&stubDispatcher{}, q)

	rec := postJSON(router, "/api/reviews/flag", `{"listing_id":"acc001","issue":"dirty"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestFlagReviewsWithoutWorker(t *testing.T) {
	router := newTestRouter(&stubDispatcher{}, nil)

	rec := postJSON(router, "/api/reviews/flag", `{"listing_id":"acc001","issue":"dirty"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestFlagReviewsValidatesIssue(t *testing.T) {
	router := newTestRouter(&stubDispatcher{}, &stubEnqueuer{taskID: "task-123"})

	rec := postJSON(router, "/api/reviews/flag", `{"listing_id":"acc001"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Detail, "issue is required")
}
