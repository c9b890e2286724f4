// Package chi exposes the tile indexing and search API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stormlens/tileindex/internal/domain"
	healthuc "github.com/stormlens/tileindex/internal/usecase/health"
	indexinguc "github.com/stormlens/tileindex/internal/usecase/indexing"
	searchuc "github.com/stormlens/tileindex/internal/usecase/search"
	statsuc "github.com/stormlens/tileindex/internal/usecase/stats"
)

// maxBodyBytes caps request bodies, matching the tile image download cap.
const maxBodyBytes = 16 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the usecase services.
type Server struct {
	indexing      *indexinguc.Service
	search        *searchuc.Service
	health        *healthuc.Service
	stats         *statsuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	indexing *indexinguc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	stats *statsuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		indexing: indexing,
		search:   search,
		health:   health,
		stats:    stats,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrFetch, http.StatusBadGateway),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway),
	}
	return s
}

// RouteOptions carries per-group middleware. Nil entries are skipped.
type RouteOptions struct {
	IndexAuth   func(http.Handler) http.Handler
	SearchLimit func(http.Handler) http.Handler
	IndexLimit  func(http.Handler) http.Handler
}

// RegisterRoutes mounts the API routes. IndexAuth guards the mutating
// endpoints; read endpoints stay open.
func (s *Server) RegisterRoutes(r chi.Router, opts RouteOptions) {
	r.Get("/health", s.HealthCheck)
	r.Get("/stats", s.Stats)
	r.Get("/metrics", s.Metrics)

	r.Group(func(r chi.Router) {
		if opts.SearchLimit != nil {
			r.Use(opts.SearchLimit)
		}
		r.Post("/search_images", s.SearchImages)
	})

	r.Group(func(r chi.Router) {
		if opts.IndexAuth != nil {
			r.Use(opts.IndexAuth)
		}
		if opts.IndexLimit != nil {
			r.Use(opts.IndexLimit)
		}
		r.Post("/index_tile", s.IndexTile)
		r.Delete("/delete_image/{image_id}", s.DeleteImage)
	})
}

// IndexTile handles POST /index_tile.
func (s *Server) IndexTile(w http.ResponseWriter, r *http.Request) {
	var req indexTileRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.indexing.Index(r.Context(), &indexinguc.Request{
		ImageID:   req.ImageID,
		TileURL:   req.TileURL,
		ThumbURL:  req.ThumbURL,
		Bounds:    req.Bounds,
		Timestamp: req.Timestamp,
		Metadata:  req.Metadata,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if out.Duplicate {
		writeJSON(w, http.StatusOK, duplicateResponse{
			Warning:         "URL already indexed",
			ExistingImageID: out.ExistingID,
			Action:          "skipped",
		})
		return
	}

	writeJSON(w, http.StatusCreated, indexedResponse{
		Status:  "indexed",
		ImageID: out.ImageID,
		Center:  centerResponse{Lat: out.CenterLat, Lon: out.CenterLon},
	})
}

// SearchImages handles POST /search_images.
func (s *Server) SearchImages(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rs, err := s.search.Search(r.Context(), &searchuc.Request{
		Query: req.Query,
		K:     req.K,
		ROI:   req.ROI,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits := make([]searchHitResponse, len(rs.Results))
	for i, res := range rs.Results {
		hits[i] = searchHitFromResult(res)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:     rs.Query,
		Results:   hits,
		Count:     rs.Count,
		Requested: rs.Requested,
	})
}

// DeleteImage handles DELETE /delete_image/{image_id}.
func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "image_id")

	if err := s.indexing.Delete(r.Context(), imageID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{Status: "deleted", ImageID: imageID})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	components := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		components[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:     string(report.Status),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
		Metrics:    map[string]int{"total_images": report.TotalImages},
	})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.stats.Snapshot(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalImages:  snap.TotalImages,
		RecentImages: snap.RecentImages,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// safeDomainMessage returns a client-facing error message. Validation errors
// carry their full text; everything else is reduced to its sentinel to avoid
// leaking internals.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrFetch,
		domain.ErrEmbeddingProvider,
		domain.ErrStore,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
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
	writeError(w, http.StatusInternalServerError, "internal error")
}
