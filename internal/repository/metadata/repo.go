// Package metadata persists tile records as JSON documents with an FT index
// over the dedup hash and the ingestion time.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stormlens/tileindex/internal/db"
	"github.com/stormlens/tileindex/internal/domain"
	"github.com/stormlens/tileindex/internal/domain/tile"
)

// store is the consumer interface for metadata documents (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements the metadata store adapter used by the indexing orchestrator.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a metadata repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// doc is the persisted shape: the tile record plus a numeric ingestion time
// for SORTABLE ordering.
type doc struct {
	tile.Tile
	IndexedAtMS int64 `json:"indexed_at_ms"`
}

// EnsureIndex creates the FT index over metadata documents if it is missing.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check metadata index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        r.indexName(),
		StorageType: db.StorageJSON,
		Prefixes:    []string{r.keyPrefix + "meta:"},
		Fields: []db.IndexField{
			{Name: "$.url_hash", Alias: "url_hash", Type: db.IndexFieldTag},
			{Name: "$.indexed_at_ms", Alias: "indexed_at_ms", Type: db.IndexFieldNumeric, Sortable: true},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create metadata index: %w", err)
	}
	return nil
}

// Put creates or fully replaces the metadata document for a tile.
func (r *Repo) Put(ctx context.Context, t tile.Tile) error {
	d := doc{Tile: t, IndexedAtMS: indexedAtMillis(t.IndexedAt)}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal tile %s: %w", t.ImageID, err)
	}
	if err := r.store.JSONSet(ctx, r.docKey(t.ImageID), "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", t.ImageID, err)
	}
	return nil
}

// Get returns the tile record by id.
func (r *Repo) Get(ctx context.Context, id string) (tile.Tile, error) {
	raw, err := r.store.JSONGet(ctx, r.docKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return tile.Tile{}, domain.ErrNotFound
		}
		return tile.Tile{}, fmt.Errorf("json.get %s: %w", id, err)
	}

	// JSON.GET with a $ path wraps the document in an array.
	var docs []doc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return tile.Tile{}, fmt.Errorf("unmarshal tile %s: %w", id, err)
	}
	if len(docs) == 0 {
		return tile.Tile{}, domain.ErrNotFound
	}
	return docs[0].Tile, nil
}

// Delete removes the metadata document. Deleting an absent record is not an
// error: delete is per-store best effort.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.docKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", id, err)
	}
	return nil
}

// FindByURLHash returns the tile currently holding the given dedup hash.
func (r *Repo) FindByURLHash(ctx context.Context, hash string) (tile.Tile, bool, error) {
	q := &db.ListQuery{
		IndexName:    r.indexName(),
		Query:        db.TagEquals("url_hash", hash),
		Limit:        1,
		ReturnFields: []string{"$"},
	}
	sr, err := r.store.SearchList(ctx, q)
	if err != nil {
		return tile.Tile{}, false, fmt.Errorf("search url_hash %s: %w", hash, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return tile.Tile{}, false, nil
	}

	t, err := parseEntryDoc(sr.Entries[0].Fields["$"])
	if err != nil {
		return tile.Tile{}, false, fmt.Errorf("parse url_hash hit: %w", err)
	}
	return t, true, nil
}

// ListRecent returns up to n tiles ordered by ingestion time, newest first.
func (r *Repo) ListRecent(ctx context.Context, n int) ([]tile.Tile, error) {
	q := &db.ListQuery{
		IndexName:    r.indexName(),
		Query:        "*",
		Limit:        n,
		ReturnFields: []string{"$"},
		SortBy:       "indexed_at_ms",
		SortDesc:     true,
	}
	sr, err := r.store.SearchList(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	tiles := make([]tile.Tile, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		t, err := parseEntryDoc(entry.Fields["$"])
		if err != nil {
			continue
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}

func (r *Repo) docKey(id string) string {
	return r.keyPrefix + "meta:" + id
}

func (r *Repo) indexName() string {
	return r.keyPrefix + "meta:idx"
}

// parseEntryDoc decodes a JSON document returned by FT.SEARCH RETURN $.
func parseEntryDoc(jsonStr string) (tile.Tile, error) {
	if jsonStr == "" {
		return tile.Tile{}, fmt.Errorf("empty document")
	}
	var d doc
	if err := json.Unmarshal([]byte(jsonStr), &d); err != nil {
		return tile.Tile{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return d.Tile, nil
}

func indexedAtMillis(indexedAt string) int64 {
	ts, err := time.Parse(time.RFC3339, indexedAt)
	if err != nil {
		return 0
	}
	return ts.UnixMilli()
}
