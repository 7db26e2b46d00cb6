// Package chi exposes the filter engine over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	domquery "github.com/kailas-cloud/facetdex/internal/domain/query"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	queryuc "github.com/kailas-cloud/facetdex/internal/usecase/query"
	reindexuc "github.com/kailas-cloud/facetdex/internal/usecase/reindex"
)

// Error response codes.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeCategoryNotFound = "category_not_found"
	codeJobNotFound      = "job_not_found"
	codeInternalError    = "internal_error"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server carries the usecase services behind the HTTP handlers.
type Server struct {
	query         *queryuc.Service
	reindex       *reindexuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	query *queryuc.Service,
	reindex *reindexuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		query:   query,
		reindex: reindex,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrCategoryNotFound, http.StatusNotFound, codeCategoryNotFound),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, codeJobNotFound),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
	}
	return s
}

// Routes mounts every endpoint on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1/tenants/{tenant}", func(r chi.Router) {
		r.Post("/filter", s.FilterProducts)
		r.Get("/categories/{slug}/facet-schema", s.FacetSchema)
		r.Post("/reindex", s.TriggerReindex)
		r.Get("/reindex/{job}", s.ReindexJob)
	})
}

// filterRequest is the POST /filter body.
type filterRequest struct {
	CategorySlug string              `json:"category_slug,omitempty"`
	BrandSlugs   []string            `json:"brand_slugs,omitempty"`
	Text         string              `json:"text,omitempty"`
	PriceMin     *float64            `json:"price_min,omitempty"`
	PriceMax     *float64            `json:"price_max,omitempty"`
	InStockOnly  bool                `json:"in_stock_only,omitempty"`
	Attributes   map[string][]string `json:"attributes,omitempty"`
	Sort         string              `json:"sort,omitempty"`
	Page         int                 `json:"page,omitempty"`
	PageSize     int                 `json:"page_size,omitempty"`
}

// FilterProducts handles POST /api/v1/tenants/{tenant}/filter.
func (s *Server) FilterProducts(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	fq, err := domquery.New(
		chi.URLParam(r, "tenant"),
		req.CategorySlug,
		req.BrandSlugs,
		req.Text,
		req.PriceMin, req.PriceMax,
		req.InStockOnly,
		req.Attributes,
		req.Sort,
		req.Page, req.PageSize,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, safeDomainMessage(err))
		return
	}

	page, err := s.query.Filter(r.Context(), fq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// FacetSchema handles GET /api/v1/tenants/{tenant}/categories/{slug}/facet-schema.
func (s *Server) FacetSchema(w http.ResponseWriter, r *http.Request) {
	entries, err := s.query.FacetSchema(r.Context(), chi.URLParam(r, "tenant"), chi.URLParam(r, "slug"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"attributes": entries})
}

// reindexRequest is the optional POST /reindex body.
type reindexRequest struct {
	Scope string `json:"scope,omitempty"`
}

// TriggerReindex handles POST /api/v1/tenants/{tenant}/reindex.
func (s *Server) TriggerReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	job, err := s.reindex.Trigger(r.Context(), chi.URLParam(r, "tenant"), req.Scope)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

// ReindexJob handles GET /api/v1/tenants/{tenant}/reindex/{job}.
func (s *Server) ReindexJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.reindex.JobStatus(r.Context(), chi.URLParam(r, "tenant"), chi.URLParam(r, "job"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnknownAttribute,
		domain.ErrValidation,
		domain.ErrCategoryNotFound,
		domain.ErrJobNotFound,
		domain.ErrDocumentNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
