package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/aftershock-catalog/internal/adapter/http"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"github.com/couchcryptid/aftershock-catalog/internal/observability"
	"github.com/couchcryptid/aftershock-catalog/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "event_id,datetime,latitude,longitude,depth_km,magnitude,magnitude_type,location_description,source\n"

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type failingLoader struct{}

func (failingLoader) Load(_ context.Context, _ domain.Catalog) error {
	return errors.New("disk full")
}

func newPipeline(t *testing.T, loaders ...pipeline.Loader) *pipeline.Pipeline {
	t.Helper()
	s, err := domain.DefaultSchema()
	require.NoError(t, err)
	return pipeline.New(domain.NewValidator(s, nil), nil, loaders, slog.Default(), observability.NewMetricsForTesting())
}

func newTestServer(t *testing.T, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, newPipeline(t), slog.Default())
}

func postCatalog(t *testing.T, srv http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/catalogs/validate?name=carlisle", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")

	srv.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, fmt.Errorf("no schema loaded"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no schema loaded", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTemplateEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/template", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, header, rec.Body.String())
}

func TestValidate_Accepted(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := postCatalog(t, srv, header+
		"CAR-001,1979-12-29T02:15:00Z,54.7,-1.7,,3.1,ML,,\n"+
		"CAR-002,1979-12-29T04:15:00Z,54.8,-2.9,7,2.2,ML,,BGS\n")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "carlisle", body["catalog"])
	assert.InDelta(t, 2, body["rows"], 0)
	assert.InDelta(t, 2, body["accepted"], 0)
	assert.NotContains(t, body, "violations")
}

func TestValidate_Rejected(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := postCatalog(t, srv, header+
		"CAR-001,1979-12-29T02:15:00Z,54.7,-1.7,,3.1,ML,,\n"+
		"CAR-002,,54.7,-1.7,,3.1,ML,,\n"+
		"CAR-001,1979-12-30T02:15:00Z,54.7,-1.7,,3.1,ML,,\n")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "rejected", body["status"])
	assert.InDelta(t, 1, body["accepted"], 0)

	violations, ok := body["violations"].([]any)
	require.True(t, ok)
	require.Len(t, violations, 2)

	first := violations[0].(map[string]any)
	assert.InDelta(t, 2, first["row"], 0)
	v := first["violations"].([]any)[0].(map[string]any)
	assert.Equal(t, "datetime", v["field"])
	assert.Equal(t, "missing_required", v["kind"])
	assert.InDelta(t, 3, v["line"], 0)

	second := violations[1].(map[string]any)
	v = second["violations"].([]any)[0].(map[string]any)
	assert.Equal(t, "duplicate_id", v["kind"])
	assert.Equal(t, []any{float64(1)}, v["related_rows"])
}

func TestValidate_HeaderMismatch(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := postCatalog(t, srv, "event_id,datetime,lat,lon\nCAR-001,1979-12-29T02:15:00Z,54.7,-1.7\n")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid", body["status"])
	assert.Contains(t, body["missing_columns"], "latitude")
	assert.Contains(t, body["unexpected_columns"], "lat")
}

func TestValidate_MalformedCSV(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := postCatalog(t, srv, header+"CAR-001,\"unterminated\n")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "malformed csv")
}

func TestValidate_TooLarge(t *testing.T) {
	srv := newTestServer(t, nil)
	big := header + strings.Repeat("#"+strings.Repeat("x", 1023)+"\n", httpadapter.MaxSubmissionBytes/1024+1)

	rec, body := postCatalog(t, srv, big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "invalid", body["status"])
}

func TestValidate_LoaderFailure(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, newPipeline(t, failingLoader{}), slog.Default())

	rec, body := postCatalog(t, srv, header+"CAR-001,1979-12-29T02:15:00Z,54.7,-1.7,,3.1,ML,,\n")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestValidate_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/catalogs/validate", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
