package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"curation-bff/clients"
	apperrors "curation-bff/common/errors"
	"curation-bff/controllers"
	"curation-bff/models"
	"curation-bff/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mocks implementing the service interfaces ----

type mockCuration struct {
	outcome   *services.CurationOutcome
	publish   *services.PublishOutcome
	reject    *services.RejectOutcome
	submit    *services.SubmitOutcome
	job       *models.CurationJob
	reconcile *services.ReconcileOutcome
	err       error

	gotIDs   []string
	gotNotes string
	gotJobID string
}

func (m *mockCuration) CurateSingle(context.Context, string) (*services.CurationOutcome, error) {
	return m.outcome, m.err
}
func (m *mockCuration) CurateSimple(context.Context, string) (*services.CurationOutcome, error) {
	return m.outcome, m.err
}
func (m *mockCuration) SubmitAsyncCuration(_ context.Context, ids []string, notes string) (*services.SubmitOutcome, error) {
	m.gotIDs, m.gotNotes = ids, notes
	return m.submit, m.err
}
func (m *mockCuration) GetJobStatus(_ context.Context, id string) (*models.CurationJob, error) {
	m.gotJobID = id
	return m.job, m.err
}
func (m *mockCuration) Publish(context.Context, string) (*services.PublishOutcome, error) {
	return m.publish, m.err
}
func (m *mockCuration) Reject(_ context.Context, _ string, notes string) (*services.RejectOutcome, error) {
	m.gotNotes = notes
	return m.reject, m.err
}
func (m *mockCuration) ReconcileJob(_ context.Context, id string) (*services.ReconcileOutcome, error) {
	m.gotJobID = id
	return m.reconcile, m.err
}

type mockBulk struct {
	result  *models.BulkOperationResult
	err     error
	calls   int
	confirm bool
	mode    services.CurateMode
}

func (m *mockBulk) BulkApprove(context.Context, []string, string) (*models.BulkOperationResult, error) {
	m.calls++
	return m.result, m.err
}
func (m *mockBulk) BulkReject(context.Context, []string, string) (*models.BulkOperationResult, error) {
	m.calls++
	return m.result, m.err
}
func (m *mockBulk) BulkDelete(_ context.Context, _ []string, confirm bool) (*models.BulkOperationResult, error) {
	m.calls++
	m.confirm = confirm
	return m.result, m.err
}
func (m *mockBulk) BulkCurate(_ context.Context, _ []string, mode services.CurateMode) (*models.BulkOperationResult, error) {
	m.calls++
	m.mode = mode
	return m.result, m.err
}

type mockReader struct {
	resp     *clients.UpstreamResponse
	err      error
	gotQuery url.Values
}

func (m *mockReader) ListProducts(_ context.Context, q url.Values) (*clients.UpstreamResponse, error) {
	m.gotQuery = q
	return m.resp, m.err
}
func (m *mockReader) GetProductRaw(context.Context, string) (*clients.UpstreamResponse, error) {
	return m.resp, m.err
}
func (m *mockReader) Stats(context.Context) (*clients.UpstreamResponse, error) {
	return m.resp, m.err
}

// ---- helpers ----

func setupRouter(cur services.CurationService, bulk services.BulkService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	c := controllers.NewCurationController(cur, bulk)

	r.POST("/curate/:productId", c.CurateProduct)
	r.POST("/curate-simple/:productId", c.CurateSimple)
	r.POST("/curate-async", c.CurateAsync)
	r.GET("/curation-jobs/:jobId", c.GetJob)
	r.POST("/curation-jobs/:jobId/reconcile", c.ReconcileJob)
	r.POST("/webhooks/curation-jobs", c.JobWebhook)
	r.POST("/publish-curated/:productId", c.PublishCurated)
	r.POST("/reject/:productId", c.Reject)
	r.POST("/bulk-approve", c.BulkApprove)
	r.POST("/bulk-reject", c.BulkReject)
	r.POST("/bulk-delete", c.BulkDelete)
	r.POST("/bulk-curate", c.BulkCurate)
	return r
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// ---- tests ----

func TestCurateSimple_Success(t *testing.T) {
	svc := &mockCuration{outcome: &services.CurationOutcome{
		ProductID: "p1",
		Result:    models.CurationResult{Kind: models.KindSimple, Data: models.CuratedData{BrandName: "Marca Genérica"}},
		Message:   "Producto curado mediante proceso simplificado (sin IA).",
	}}
	w := do(setupRouter(svc, &mockBulk{}), http.MethodPost, "/curate-simple/p1", map[string]string{})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "p1", body["product_id"])
	assert.Equal(t, "simple", body["curation_kind"])
	assert.Contains(t, body["message"], "proceso simplificado")
	assert.Equal(t, "Marca Genérica", body["curated_data"].(map[string]interface{})["brand_name"])
}

func TestCurateSimple_InvalidState(t *testing.T) {
	svc := &mockCuration{err: apperrors.InvalidState("Product p1 must be 'pending' to curate (current status: 'curated')")}
	w := do(setupRouter(svc, &mockBulk{}), http.MethodPost, "/curate-simple/p1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "'curated'")
}

func TestUpstreamErrorPropagatesStatusAndDetail(t *testing.T) {
	svc := &mockCuration{err: apperrors.Upstream(http.StatusConflict, "duplicate sku", map[string]interface{}{"error": "duplicate sku"})}
	w := do(setupRouter(svc, &mockBulk{}), http.MethodPost, "/publish-curated/p1", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "duplicate sku", body["error"])
	assert.Equal(t, float64(http.StatusConflict), body["status"])
	assert.NotNil(t, body["detail"])
}

func TestInternalProxyErrorHidesDetail(t *testing.T) {
	svc := &mockCuration{err: apperrors.InternalProxy(assert.AnError)}
	w := do(setupRouter(svc, &mockBulk{}), http.MethodPost, "/curate/p1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Internal proxy error", body["error"])
	assert.Nil(t, body["detail"])
}

func TestCurateAsync(t *testing.T) {
	svc := &mockCuration{submit: &services.SubmitOutcome{JobID: "J1", Status: models.JobStatusPending, ProductIDs: []string{"x", "y"}}}
	r := setupRouter(svc, &mockBulk{})

	w := do(r, http.MethodPost, "/curate-async", map[string]interface{}{"product_ids": []string{"x", "y"}, "curation_notes": "lote"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "J1", decode(t, w)["job_id"])
	assert.Equal(t, []string{"x", "y"}, svc.gotIDs)
	assert.Equal(t, "lote", svc.gotNotes)

	w = do(r, http.MethodPost, "/curate-async", map[string]interface{}{"product_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "product_ids must be a non-empty array", decode(t, w)["error"])
}

func TestGetJob_ResultsOnlyWhenPresent(t *testing.T) {
	svc := &mockCuration{job: &models.CurationJob{JobID: "J1", Status: models.JobStatusRunning}}
	w := do(setupRouter(svc, &mockBulk{}), http.MethodGet, "/curation-jobs/J1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "running", body["status"])
	_, hasResults := body["results"]
	assert.False(t, hasResults)
	assert.Equal(t, "J1", svc.gotJobID)
}

func TestGetJob_NotFound(t *testing.T) {
	svc := &mockCuration{err: apperrors.NotFound("Curation job J9 not found")}
	w := do(setupRouter(svc, &mockBulk{}), http.MethodGet, "/curation-jobs/J9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcileAndWebhook(t *testing.T) {
	svc := &mockCuration{reconcile: &services.ReconcileOutcome{JobID: "J1", Status: models.JobStatusRunning}}
	r := setupRouter(svc, &mockBulk{})

	w := do(r, http.MethodPost, "/curation-jobs/J1/reconcile", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	svc.reconcile = &services.ReconcileOutcome{
		JobID:   "J2",
		Status:  models.JobStatusCompleted,
		Applied: true,
		Result:  &models.BulkOperationResult{TotalCount: 1, SuccessfulCount: 1, SuccessfulIDs: []string{"x"}},
	}
	w = do(r, http.MethodPost, "/webhooks/curation-jobs", map[string]string{"job_id": "J2"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "J2", svc.gotJobID)
	assert.NotNil(t, decode(t, w)["data"])

	w = do(r, http.MethodPost, "/webhooks/curation-jobs", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "job_id is required", decode(t, w)["error"])
}

func TestPublishAndReject(t *testing.T) {
	svc := &mockCuration{
		publish: &services.PublishOutcome{ProductID: "p1", GlobalProductID: "g1", Status: models.StatusPublished},
		reject:  &services.RejectOutcome{ProductID: "p1", Status: models.StatusRejected},
	}
	r := setupRouter(svc, &mockBulk{})

	w := do(r, http.MethodPost, "/publish-curated/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g1", decode(t, w)["global_product_id"])

	// reject accepts an empty body
	req := httptest.NewRequest(http.MethodPost, "/reject/p1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", decode(t, rec)["status"])

	w = do(r, http.MethodPost, "/reject/p1", map[string]string{"notes": "spam"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "spam", svc.gotNotes)
}

func TestBulkEndpoints(t *testing.T) {
	result := &models.BulkOperationResult{
		SuccessfulCount: 2, FailedCount: 1, TotalCount: 3,
		SuccessfulIDs: []string{"a", "c"},
		FailedItems:   []models.BulkFailedItem{{ID: "b", Error: "write failed"}},
	}
	bulk := &mockBulk{result: result}
	r := setupRouter(&mockCuration{}, bulk)

	w := do(r, http.MethodPost, "/bulk-approve", map[string]interface{}{"product_ids": []string{"a", "b", "c"}})
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total_count"])
	assert.Equal(t, []interface{}{"a", "c"}, data["successful_ids"])

	w = do(r, http.MethodPost, "/bulk-delete", map[string]interface{}{"product_ids": []string{"a"}, "confirm": true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bulk.confirm)

	w = do(r, http.MethodPost, "/bulk-curate", map[string]interface{}{"product_ids": []string{"a"}, "mode": "fallback"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.CurateModeFallback, bulk.mode)
}

func TestBulkEndpoints_InvalidBodies(t *testing.T) {
	bulk := &mockBulk{}
	r := setupRouter(&mockCuration{}, bulk)

	w := do(r, http.MethodPost, "/bulk-reject", map[string]interface{}{"product_ids": "a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/bulk-approve", map[string]interface{}{"product_ids": []string{"a", ""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "product_ids must not contain empty values", decode(t, w)["error"])

	w = do(r, http.MethodPost, "/bulk-curate", map[string]interface{}{"product_ids": []string{"a"}, "mode": "magic"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, bulk.calls)
}

func TestBulkServiceInvalidArgumentIsBadRequest(t *testing.T) {
	bulk := &mockBulk{err: apperrors.InvalidArgument("Bulk delete requires explicit confirmation (confirm: true)")}
	w := do(setupRouter(&mockCuration{}, bulk), http.MethodPost, "/bulk-delete", map[string]interface{}{"product_ids": []string{"a"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "confirm")
}

func TestProxyController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &mockReader{resp: &clients.UpstreamResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{"items":[],"total":0}`),
	}}
	p := controllers.NewProxyController(reader)
	r := gin.New()
	r.GET("/scraped-products", p.ListScrapedProducts)
	r.GET("/curation-stats", p.CurationStats)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scraped-products?status=pending&page=2", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"total":0}`, w.Body.String())
	assert.Equal(t, "pending", reader.gotQuery.Get("status"))

	reader.err = apperrors.Upstream(http.StatusBadGateway, "scraper down", "502 Bad Gateway")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/curation-stats", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
