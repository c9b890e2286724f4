package search

import (
	"context"

	"github.com/stormlens/tileindex/internal/repository/vector"
)

// VectorStore answers nearest-neighbor queries over indexed tiles.
type VectorStore interface {
	Query(ctx context.Context, vec []float32, n int) ([]vector.Hit, error)
}

// Embedder vectorizes search queries.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
