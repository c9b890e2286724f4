// Package vector stores tile embeddings as Redis hashes under an FT KNN index
// and answers nearest-neighbor queries with the tile metadata attached.
package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/stormlens/tileindex/internal/db"
	"github.com/stormlens/tileindex/internal/domain/tile"
)

// store is the consumer interface for vector documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, key string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Hit is a single nearest-neighbor match: the stored tile plus its raw
// embedding-space distance (lower is closer).
type Hit struct {
	Tile     tile.Tile
	Distance float64
}

// HNSWConfig tunes the vector index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements the vector store adapter used by both orchestrators.
type Repo struct {
	store     store
	keyPrefix string
	hnsw      HNSWConfig
}

// New creates a vector repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// WithHNSW overrides the HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the KNN index if it is missing. dims must match the
// embedding provider's output dimension.
func (r *Repo) EnsureIndex(ctx context.Context, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("vector dimensions must be positive, got %d", dims)
	}

	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check vector index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        r.indexName(),
		StorageType: db.StorageHash,
		Prefixes:    []string{r.keyPrefix + "vec:"},
		Fields: []db.IndexField{
			{
				Name:              vectorField,
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         dims,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create vector index: %w", err)
	}
	return nil
}

// Upsert writes or replaces the embedding and flattened metadata for a tile.
// The key is cleared first: HSET merges into an existing hash, and a re-index
// must not carry fields from the previous record.
func (r *Repo) Upsert(ctx context.Context, id string, vec []float32, t tile.Tile) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector for %s", id)
	}
	if err := r.store.Del(ctx, r.docKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", id, err)
	}
	if err := r.store.HSet(ctx, r.docKey(id), buildHashFields(vec, t)); err != nil {
		return fmt.Errorf("hset %s: %w", id, err)
	}
	return nil
}

// Delete removes the vector record. Absent records are not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.docKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", id, err)
	}
	return nil
}

// Query returns up to n nearest neighbors ordered by ascending distance.
func (r *Repo) Query(ctx context.Context, vec []float32, n int) ([]Hit, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vec,
		K:            n,
		ReturnFields: returnFields,
	}
	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hits = append(hits, Hit{
			Tile:     parseHashFields(entry.Fields),
			Distance: entry.Distance,
		})
	}
	return hits, nil
}

// Count returns the number of indexed vectors.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

func (r *Repo) docKey(id string) string {
	return r.keyPrefix + "vec:" + id
}

func (r *Repo) indexName() string {
	return r.keyPrefix + "vec:idx"
}
