package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/aftershock-catalog/internal/adapter/csvfile"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"github.com/couchcryptid/aftershock-catalog/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxSubmissionBytes caps the size of an uploaded catalog.
const MaxSubmissionBytes = 10 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// CatalogService validates submissions and exposes the schema they are checked against.
type CatalogService interface {
	Process(ctx context.Context, sub domain.Submission) (pipeline.Outcome, error)
	Schema() *domain.Schema
}

// Server exposes the catalog submission API alongside health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	catalogs   CatalogService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 catalog routes.
func NewServer(addr string, ready ReadinessChecker, catalogs CatalogService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		catalogs: catalogs,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/template", s.handleTemplate)
	mux.HandleFunc("POST /v1/catalogs/validate", s.handleValidate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="aftershock_template.csv"`)
	if err := csvfile.WriteTemplate(w, s.catalogs.Schema()); err != nil {
		s.logger.Error("write template failed", "error", err)
	}
}

// validateResponse is the body of POST /v1/catalogs/validate.
type validateResponse struct {
	Status            string                 `json:"status"`
	Catalog           string                 `json:"catalog,omitempty"`
	Rows              int                    `json:"rows"`
	Accepted          int                    `json:"accepted"`
	Violations        []domain.RowViolations `json:"violations,omitempty"`
	MissingColumns    []string               `json:"missing_columns,omitempty"`
	UnexpectedColumns []string               `json:"unexpected_columns,omitempty"`
	Error             string                 `json:"error,omitempty"`
}

// handleValidate accepts a CSV catalog in the request body. Responses:
// 200 accepted, 422 row violations, 400 malformed CSV or header mismatch,
// 413 body too large.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxSubmissionBytes)

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "submission"
	}

	sub, err := csvfile.Decode(r.Body, name)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, validateResponse{Status: "invalid", Catalog: name, Error: "submission exceeds 10 MiB"})
			return
		}
		writeJSON(w, http.StatusBadRequest, validateResponse{Status: "invalid", Catalog: name, Error: err.Error()})
		return
	}

	out, err := s.catalogs.Process(r.Context(), sub)
	if err != nil {
		var mismatch *domain.SchemaMismatchError
		if errors.As(err, &mismatch) {
			writeJSON(w, http.StatusBadRequest, validateResponse{
				Status:            "invalid",
				Catalog:           name,
				Rows:              len(sub.Rows),
				MissingColumns:    mismatch.Missing,
				UnexpectedColumns: mismatch.Unexpected,
				Error:             err.Error(),
			})
			return
		}
		s.logger.Error("process submission failed", "catalog", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, validateResponse{Status: "error", Catalog: name, Error: "submission could not be stored"})
		return
	}

	resp := validateResponse{
		Catalog:  name,
		Rows:     out.Result.Rows,
		Accepted: len(out.Result.Records),
	}
	if !out.Accepted {
		resp.Status = "rejected"
		resp.Violations = out.Result.ByRow()
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	resp.Status = "accepted"
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
