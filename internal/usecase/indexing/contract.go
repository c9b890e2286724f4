package indexing

import (
	"context"

	"github.com/stormlens/tileindex/internal/domain/tile"
)

// MetadataStore defines the metadata persistence contract.
type MetadataStore interface {
	Put(ctx context.Context, t tile.Tile) error
	Get(ctx context.Context, id string) (tile.Tile, error)
	Delete(ctx context.Context, id string) error
	FindByURLHash(ctx context.Context, hash string) (tile.Tile, bool, error)
}

// VectorStore defines the embedding persistence contract.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vec []float32, t tile.Tile) error
	Delete(ctx context.Context, id string) error
}

// Embedder vectorizes tile images.
type Embedder interface {
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)
}

// Fetcher downloads tile images.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
