// Package indexing orchestrates the tile ingestion pipeline: validation,
// duplicate detection, image download, embedding and the dual-store write.
package indexing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stormlens/tileindex/internal/domain"
	"github.com/stormlens/tileindex/internal/domain/geo"
	"github.com/stormlens/tileindex/internal/domain/tile"
	"github.com/stormlens/tileindex/internal/logger"
	"github.com/stormlens/tileindex/internal/metrics"
)

// Request is a tile ingestion request.
type Request struct {
	ImageID   string
	TileURL   string
	ThumbURL  string
	Bounds    *geo.Bounds
	Timestamp string
	Metadata  map[string]string
}

// Outcome is the result of an ingestion attempt. When Duplicate is set the
// tile was not written and ExistingID names the record holding the URL.
type Outcome struct {
	ImageID    string
	CenterLat  float64
	CenterLon  float64
	Duplicate  bool
	ExistingID string
}

// Service handles tile ingestion.
type Service struct {
	meta         MetadataStore
	vectors      VectorStore
	embedder     Embedder
	fetcher      Fetcher
	allowedHosts []string
	now          func() time.Time
}

// New creates an indexing service.
func New(meta MetadataStore, vectors VectorStore, embedder Embedder, fetcher Fetcher, allowedHosts []string) *Service {
	return &Service{
		meta:         meta,
		vectors:      vectors,
		embedder:     embedder,
		fetcher:      fetcher,
		allowedHosts: allowedHosts,
		now:          time.Now,
	}
}

// Index validates and ingests a single tile. A URL already indexed under a
// different id short-circuits into a duplicate outcome without any writes.
func (s *Service) Index(ctx context.Context, req *Request) (Outcome, error) {
	log := logger.FromContext(ctx)

	if err := s.validate(req); err != nil {
		metrics.TilesIndexedTotal.WithLabelValues("error").Inc()
		return Outcome{}, err
	}

	hash := tile.URLHash(req.TileURL)

	existing, found, err := s.meta.FindByURLHash(ctx, hash)
	if err != nil {
		metrics.TilesIndexedTotal.WithLabelValues("error").Inc()
		return Outcome{}, fmt.Errorf("duplicate check: %w", err)
	}
	if found && existing.ImageID != req.ImageID {
		log.Warn("duplicate tile URL",
			zap.String("image_id", req.ImageID),
			zap.String("existing_image_id", existing.ImageID))
		metrics.TilesIndexedTotal.WithLabelValues("duplicate").Inc()
		return Outcome{Duplicate: true, ExistingID: existing.ImageID}, nil
	}

	centerLat, centerLon := req.Bounds.Center()

	img, err := s.fetcher.Fetch(ctx, req.TileURL)
	if err != nil {
		metrics.TilesIndexedTotal.WithLabelValues("error").Inc()
		return Outcome{}, fmt.Errorf("download tile: %w", err)
	}

	vec, err := s.embedder.EmbedImage(ctx, img)
	if err != nil {
		metrics.TilesIndexedTotal.WithLabelValues("error").Inc()
		return Outcome{}, fmt.Errorf("embed tile: %w", err)
	}

	rec := tile.Tile{
		ImageID:   req.ImageID,
		TileURL:   req.TileURL,
		ThumbURL:  req.ThumbURL,
		Bounds:    *req.Bounds,
		CenterLat: centerLat,
		CenterLon: centerLon,
		URLHash:   hash,
		Timestamp: req.Timestamp,
		IndexedAt: s.now().UTC().Format(time.RFC3339),
		Metadata:  req.Metadata,
	}

	if err := s.meta.Put(ctx, rec); err != nil {
		metrics.TilesIndexedTotal.WithLabelValues("error").Inc()
		return Outcome{}, fmt.Errorf("store metadata: %w", err)
	}
	if err := s.vectors.Upsert(ctx, rec.ImageID, vec, rec); err != nil {
		s.rollback(ctx, rec.ImageID)
		metrics.TilesIndexedTotal.WithLabelValues("error").Inc()
		return Outcome{}, fmt.Errorf("store vector: %w", err)
	}

	log.Info("tile indexed", zap.String("image_id", rec.ImageID))
	metrics.TilesIndexedTotal.WithLabelValues("indexed").Inc()

	return Outcome{ImageID: rec.ImageID, CenterLat: centerLat, CenterLon: centerLon}, nil
}

// Delete removes a tile from both stores. Unknown ids return
// domain.ErrNotFound before either store is touched.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := tile.ValidateID(id); err != nil {
		return err
	}
	if _, err := s.meta.Get(ctx, id); err != nil {
		return fmt.Errorf("load tile %s: %w", id, err)
	}
	if err := s.meta.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	if err := s.vectors.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	metrics.TilesDeletedTotal.Inc()
	return nil
}

func (s *Service) validate(req *Request) error {
	if req.ImageID == "" {
		return domain.Invalid("image_id is required")
	}
	if req.TileURL == "" {
		return domain.Invalid("tile_url is required")
	}
	if req.Bounds == nil {
		return domain.Invalid("bounds is required")
	}
	if err := tile.ValidateID(req.ImageID); err != nil {
		return err
	}
	if err := tile.ValidateURL(req.TileURL, s.allowedHosts); err != nil {
		return err
	}
	if err := req.Bounds.Validate(); err != nil {
		return err
	}
	if req.ThumbURL != "" {
		if err := tile.ValidateURL(req.ThumbURL, s.allowedHosts); err != nil {
			return err
		}
	}
	return nil
}

// rollback undoes a partial write. Failures are logged, not returned: the
// original error is the one the caller needs to see.
func (s *Service) rollback(ctx context.Context, id string) {
	log := logger.FromContext(ctx)
	log.Warn("rolling back partial index", zap.String("image_id", id))

	if err := s.meta.Delete(ctx, id); err != nil {
		log.Error("rollback: delete metadata failed", zap.String("image_id", id), zap.Error(err))
	}
	if err := s.vectors.Delete(ctx, id); err != nil {
		log.Error("rollback: delete vector failed", zap.String("image_id", id), zap.Error(err))
	}
}
