// Package stats aggregates index-wide counters for the stats endpoint.
package stats

import (
	"context"
	"fmt"
)

const recentSample = 5

// Snapshot is a point-in-time view of the index.
type Snapshot struct {
	TotalImages  int
	RecentImages []string
}

// Service aggregates index statistics.
type Service struct {
	vectors VectorCounter
	recent  RecentLister
}

// New creates a stats service.
func New(vectors VectorCounter, recent RecentLister) *Service {
	return &Service{vectors: vectors, recent: recent}
}

// Snapshot returns the current index size and a sample of recent image ids.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	total, err := s.vectors.Count(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count tiles: %w", err)
	}

	tiles, err := s.recent.ListRecent(ctx, recentSample)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list recent tiles: %w", err)
	}

	ids := make([]string, 0, len(tiles))
	for _, t := range tiles {
		ids = append(ids, t.ImageID)
	}

	return Snapshot{TotalImages: total, RecentImages: ids}, nil
}
