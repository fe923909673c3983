package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cold_solutions_backend/internal/intelligence/analysis"
	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/internal/intelligence/pipeline"
	"cold_solutions_backend/internal/intelligence/places"
	"cold_solutions_backend/internal/intelligence/progress"
	"cold_solutions_backend/internal/intelligence/repository"
	"cold_solutions_backend/internal/intelligence/service"
	"cold_solutions_backend/internal/intelligence/transport"
	"cold_solutions_backend/internal/intelligence/website"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noProvider struct{}

func (noProvider) LookupPlace(context.Context, places.Query) (*places.Place, error) { return nil, nil }
func (noProvider) ScrapeWebsite(context.Context, string) (*website.Result, error) { return nil, nil }
func (noProvider) FindCompetitors(context.Context, string, string, string, string) ([]domain.Competitor, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.Service) {
	t.Helper()
	store := repository.NewMemory()
	runs := progress.NewMemoryStore()
	log := logger.Discard()
	p := pipeline.New(pipeline.Config{BatchSize: 5, CostPerLead: 0.07}, pipeline.Deps{
		Leads:    store,
		Provider: noProvider{},
		Analyzer: analysis.New(nil, log),
		Progress: runs,
		Log:      log,
	})
	val := validator.New()
	if err := transport.RegisterValidations(val); err != nil {
		t.Fatalf("register validations: %v", err)
	}
	svc := service.New(service.Deps{Store: store, Pipeline: p, Progress: runs, Val: val, Log: log})

	r := gin.New()
	New(svc, val).RegisterRoutes(r.Group("/api/v1/intelligence"))
	return r, svc
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestEstimateEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(r, http.MethodGet, "/api/v1/intelligence/estimate?count=100", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var est transport.CostEstimate
	_ = json.Unmarshal(rec.Body.Bytes(), &est)
	if est.TotalBatches != 20 || est.EstimatedCost < 6.99 || est.EstimatedCost > 7.01 {
		t.Fatalf("unexpected estimate %+v", est)
	}

	if rec := do(r, http.MethodGet, "/api/v1/intelligence/estimate?count=-3", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for negative count, got %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/v1/intelligence/estimate?count=abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric count, got %d", rec.Code)
	}
}

func TestImportValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(r, http.MethodPost, "/api/v1/intelligence/leads", map[string]any{"leads": []any{}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty leads, got %d", rec.Code)
	}

	rec = do(r, http.MethodPost, "/api/v1/intelligence/leads", map[string]any{
		"leads": []map[string]string{{"business_name": "Bright Smiles", "city": "Austin", "country": "US"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestImportCSVMultipart(t *testing.T) {
	r, _ := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "leads.csv")
	_, _ = fw.Write([]byte("business_name,city,country\nBright Smiles,Austin,US\nPeak Dental,Denver,US\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/intelligence/leads/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var res transport.ImportResult
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Imported != 2 {
		t.Fatalf("expected 2 imported, got %+v", res)
	}

	rec = do(r, http.MethodGet, "/api/v1/intelligence/leads?status=Not%20Started", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":2`) {
		t.Fatalf("expected 2 listed leads, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(r, http.MethodGet, "/api/v1/intelligence/leads?status=Done", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown status, got %d", rec.Code)
	}
}

func TestBulkRunLifecycle(t *testing.T) {
	r, svc := newTestRouter(t)

	if rec := do(r, http.MethodPost, "/api/v1/intelligence/bulk-runs", nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without eligible leads, got %d", rec.Code)
	}

	rec := do(r, http.MethodPost, "/api/v1/intelligence/leads", map[string]any{
		"leads": []map[string]string{{"business_name": "Bright Smiles", "city": "Austin", "country": "US"}},
	})
	var imported transport.ImportResult
	_ = json.Unmarshal(rec.Body.Bytes(), &imported)

	rec = do(r, http.MethodPost, "/api/v1/intelligence/bulk-runs", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var started domain.BulkProcessingStatus
	_ = json.Unmarshal(rec.Body.Bytes(), &started)
	svc.Wait()

	rec = do(r, http.MethodGet, "/api/v1/intelligence/bulk-runs/"+started.RunID, nil)
	var final domain.BulkProcessingStatus
	_ = json.Unmarshal(rec.Body.Bytes(), &final)
	if final.State != domain.RunCompleted || final.Degraded != 1 {
		t.Fatalf("expected completed run with a degraded lead, got %+v", final)
	}

	rec = do(r, http.MethodGet, "/api/v1/intelligence/leads/"+imported.IDs[0]+"/analysis", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"degraded":true`) {
		t.Fatalf("expected degraded analysis, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(r, http.MethodGet, "/api/v1/intelligence/leads/"+imported.IDs[0]+"/raw", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected raw json payload, got %d", rec.Code)
	}

	if rec := do(r, http.MethodDelete, "/api/v1/intelligence/bulk-runs/unknown", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 cancelling unknown run, got %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/v1/intelligence/leads/unknown/analysis", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing analysis, got %d", rec.Code)
	}
}
