// Package search orchestrates semantic tile search: query embedding, KNN
// retrieval and optional region-of-interest filtering.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stormlens/tileindex/internal/domain"
	"github.com/stormlens/tileindex/internal/domain/geo"
	"github.com/stormlens/tileindex/internal/domain/tile"
	"github.com/stormlens/tileindex/internal/logger"
)

const maxQueryLen = 500

// Request is a semantic search request. A nil K means
// "use the configured default".
type Request struct {
	Query string
	K     *int
	ROI   *geo.Bounds
}

// Result is a single ranked match. Similarity is 1 - Distance.
type Result struct {
	Tile       tile.Tile
	Distance   float64
	Similarity float64
}

// ResultSet is the outcome of a search.
type ResultSet struct {
	Query     string
	Results   []Result
	Count     int
	Requested int
}

// Config holds the search tuning knobs.
type Config struct {
	MaxResults    int
	DefaultK      int
	ROIMultiplier int
}

// Service handles semantic search.
type Service struct {
	vectors  VectorStore
	embedder Embedder
	cfg      Config
}

// New creates a search service.
func New(vectors VectorStore, embedder Embedder, cfg Config) *Service {
	return &Service{vectors: vectors, embedder: embedder, cfg: cfg}
}

// Search embeds the query, over-fetches when an ROI is present and returns up
// to k matches ordered by ascending distance.
func (s *Service) Search(ctx context.Context, req *Request) (ResultSet, error) {
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return ResultSet{}, domain.Invalid("query is required")
	}
	if len(query) > maxQueryLen {
		return ResultSet{}, domain.Invalid("query too long (max %d characters)", maxQueryLen)
	}

	k := s.cfg.DefaultK
	if req.K != nil {
		k = *req.K
	}
	if k < 1 {
		return ResultSet{}, domain.Invalid("k must be at least 1")
	}
	if k > s.cfg.MaxResults {
		return ResultSet{}, domain.Invalid("k cannot exceed %d", s.cfg.MaxResults)
	}

	if req.ROI != nil {
		if err := req.ROI.Validate(); err != nil {
			return ResultSet{}, err
		}
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return ResultSet{}, fmt.Errorf("embed query: %w", err)
	}

	// ROI filtering discards hits, so fetch wider to keep recall up.
	fetchCount := k
	if req.ROI != nil {
		fetchCount = k * s.cfg.ROIMultiplier
	}
	if fetchCount > s.cfg.MaxResults {
		fetchCount = s.cfg.MaxResults
	}

	hits, err := s.vectors.Query(ctx, vec, fetchCount)
	if err != nil {
		return ResultSet{}, fmt.Errorf("vector query: %w", err)
	}

	results := make([]Result, 0, k)
	for _, hit := range hits {
		if req.ROI != nil && !req.ROI.Contains(hit.Tile.CenterLat, hit.Tile.CenterLon) {
			continue
		}
		results = append(results, Result{
			Tile:       hit.Tile,
			Distance:   hit.Distance,
			Similarity: 1 - hit.Distance,
		})
		if len(results) >= k {
			break
		}
	}

	log.Info("search completed",
		zap.String("query", query),
		zap.Int("requested", k),
		zap.Int("returned", len(results)))

	return ResultSet{
		Query:     query,
		Results:   results,
		Count:     len(results),
		Requested: k,
	}, nil
}
