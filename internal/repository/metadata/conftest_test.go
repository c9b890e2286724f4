package metadata

import (
	"context"
	"testing"

	"github.com/stormlens/tileindex/internal/db"
	"github.com/stormlens/tileindex/internal/domain/geo"
	"github.com/stormlens/tileindex/internal/domain/tile"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn     func(ctx context.Context, key, path string, data []byte) error
	jsonGetFn     func(ctx context.Context, key string, paths ...string) ([]byte, error)
	delFn         func(ctx context.Context, key string) error
	searchListFn  func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "tileindex:"), ms
}

func testTile(t *testing.T) tile.Tile {
	t.Helper()
	return tile.Tile{
		ImageID:   "tile-1",
		TileURL:   "https://tiles.example.com/z18/1/2.png",
		ThumbURL:  "https://tiles.example.com/z18/1/2_thumb.png",
		Bounds:    geo.Bounds{West: -77.5, South: 18.0, East: -77.4, North: 18.05},
		CenterLat: 18.025,
		CenterLon: -77.45,
		URLHash:   "a1b2c3d4e5f60718",
		Timestamp: "2026-02-14T10:00:00Z",
		IndexedAt: "2026-02-14T10:00:01Z",
		Metadata:  map[string]string{"source": "survey-7"},
	}
}
