package stats

import (
	"context"

	"github.com/stormlens/tileindex/internal/domain/tile"
)

// VectorCounter reports the number of indexed tiles.
type VectorCounter interface {
	Count(ctx context.Context) (int, error)
}

// RecentLister returns recently indexed tiles, newest first.
type RecentLister interface {
	ListRecent(ctx context.Context, n int) ([]tile.Tile, error)
}
