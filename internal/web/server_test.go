package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/CSRExport/internal/config"
	"github.com/JonMunkholm/CSRExport/internal/core"
	"github.com/JonMunkholm/CSRExport/internal/core/entities"
	"github.com/JonMunkholm/CSRExport/internal/download"
	"github.com/JonMunkholm/CSRExport/internal/provider"
	_ "github.com/JonMunkholm/CSRExport/internal/render/delimited"
	"github.com/JonMunkholm/CSRExport/internal/store"
)

func amount(v float64) *float64 { return &v }

func newTestServer(t *testing.T, opts Options) (*Server, *core.Service) {
	t.Helper()

	paid := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	records := provider.Static{
		core.EntityPayments: {
			&entities.Payment{ID: "1", Reference: "PAY-1", Payer: "Acme", Status: "completed", Amount: amount(1500), Fee: amount(35), PaidAt: paid},
			&entities.Payment{ID: "2", Reference: "PAY-2", Payer: "Globex", Status: "pending", Amount: amount(250), PaidAt: paid.AddDate(0, 0, 1)},
		},
	}

	files, err := download.NewDirectory(t.TempDir())
	require.NoError(t, err)

	svc, err := core.NewService(core.ServiceConfig{MaxConcurrent: 2, MaxWait: time.Second}, core.ServiceDeps{
		Provider:   records,
		Downloader: files,
		History:    core.NewHistoryStore(store.NewMemory(), ""),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	if opts.Files == nil {
		opts.Files = files
	}
	return NewServer(svc, opts), svc
}

func do(t *testing.T, s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const paymentsExport = `{"name":"Payments","config":{"format":"csv","entityType":"payments","includeColumns":["reference","payer","amount"],"sortBy":"amount","sortOrder":"desc"}}`

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body["formats"], string(core.FormatCSV))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCatalogs(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/entities", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]EntityResponse](t, rec)

	var payments *EntityResponse
	for i := range list {
		if list[i].Type == core.EntityPayments {
			payments = &list[i]
		}
	}
	require.NotNil(t, payments)
	assert.Equal(t, "paid_at", payments.TimestampField)
	assert.Equal(t, []string{"status", "category", "amount", "dateRange"}, payments.Filters)

	rec = do(t, s, http.MethodGet, "/api/entities/payments/columns", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cols := decode[[]core.ColumnDefinition](t, rec)
	assert.Equal(t, payments.Columns, len(cols))

	rec = do(t, s, http.MethodGet, "/api/entities/donors/columns", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]core.ReportTemplate](t, rec))
}

func TestSubmitExport_WaitAndDownload(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/exports?wait=true", paymentsExport, map[string]string{RequesterHeader: "ops@example.org"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	job := decode[JobResponse](t, rec)
	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, 2, job.RowCount)
	assert.Equal(t, 100, job.Progress)
	require.NotEmpty(t, job.DownloadURL)
	assert.True(t, strings.HasPrefix(job.FileName, "csr_platform_payments_"))

	rec = do(t, s, http.MethodGet, job.DownloadURL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.FormatCSV.MIMEType(), rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), job.FileName)

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(rec.Body.String(), "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "PAY-1")
}

func TestSubmitExport_Accepted(t *testing.T) {
	s, svc := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/exports", paymentsExport, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	job := decode[JobResponse](t, rec)
	assert.Equal(t, core.JobPending, job.Status)
	assert.Empty(t, job.DownloadURL)

	settled, err := svc.Wait(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, settled.Status)

	rec = do(t, s, http.MethodGet, "/api/jobs/"+job.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.JobCompleted, decode[JobResponse](t, rec).Status)
}

func TestSubmitExport_Rejected(t *testing.T) {
	s, svc := newTestServer(t, Options{})

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed", `{"name":`, http.StatusBadRequest, ""},
		{"unknown field", `{"name":"x","config":{},"extra":1}`, http.StatusBadRequest, ""},
		{"bad format", `{"name":"x","config":{"format":"docx","entityType":"payments","includeColumns":["reference"]}}`, http.StatusBadRequest, "format"},
		{"no columns", `{"name":"x","config":{"format":"csv","entityType":"payments","includeColumns":[]}}`, http.StatusBadRequest, "includeColumns"},
		{"unknown column", `{"name":"x","config":{"format":"csv","entityType":"payments","includeColumns":["donor"]}}`, http.StatusBadRequest, "includeColumns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/exports", tt.body, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Code)
			if tt.field != "" {
				require.NotEmpty(t, resp.Fields)
				assert.Equal(t, tt.field, resp.Fields[0].Field)
			}
		})
	}
	assert.Empty(t, svc.Jobs())
}

func TestSubmitTemplate(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/templates/missing/export", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/templates/monthly_donations/export?wait=true", `{"format":"csv","dateRange":{"preset":"this_year"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	job := decode[JobResponse](t, rec)
	assert.Equal(t, "Monthly Donations", job.Name)
	assert.Equal(t, core.FormatCSV, job.Config.Format)
	assert.Equal(t, core.EntityPayments, job.Config.EntityType)
}

func TestJobLifecycleRoutes(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/exports?wait=1", paymentsExport, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[JobResponse](t, rec)

	rec = do(t, s, http.MethodGet, "/api/jobs?status=completed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[JobsResponse](t, rec)
	require.Len(t, listed.Jobs, 1)
	assert.Equal(t, 2, listed.Limiter.MaxConcurrent)

	rec = do(t, s, http.MethodGet, "/api/jobs?status=failed", "", nil)
	assert.Empty(t, decode[JobsResponse](t, rec).Jobs)

	rec = do(t, s, http.MethodPost, "/api/jobs/"+job.ID+"/cancel", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/jobs/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/jobs/"+job.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/jobs/"+job.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	do(t, s, http.MethodPost, "/api/exports?wait=true", paymentsExport, nil)
	rec = do(t, s, http.MethodDelete, "/api/jobs", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/jobs", "", nil)
	assert.Empty(t, decode[JobsResponse](t, rec).Jobs)
}

func TestDownload_Rejects(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/downloads/missing.csv", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/downloads/..%2Fsecret.csv", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	s, _ := newTestServer(t, Options{Security: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}})

	rec := do(t, s, http.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/jobs", "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Options{RateLimit: 2})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "", nil).Code)
	}
	rec := do(t, s, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestPreviewExport(t *testing.T) {
	s, svc := newTestServer(t, Options{})

	body := `{"format":"csv","entityType":"payments","includeColumns":["reference","amount"],"sortBy":"amount","includeMetadata":true}`
	rec := do(t, s, http.MethodPost, "/api/exports/preview?limit=1", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var preview struct {
		Summary core.PreviewSummary `json:"summary"`
		Columns []core.ColumnDefinition
		Rows    [][]any `json:"rows"`
		Metrics []map[string]any
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, core.PreviewSummary{SourceRecords: 2, MatchedRows: 2, SampleRows: 1}, preview.Summary)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "PAY-2", preview.Rows[0][0])
	assert.NotEmpty(t, preview.Metrics)
	assert.Empty(t, svc.Jobs())

	rec = do(t, s, http.MethodPost, "/api/exports/preview", `{"format":"csv","entityType":"payments","includeColumns":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
