package chi

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stormlens/tileindex/internal/domain"
	"github.com/stormlens/tileindex/internal/domain/tile"
	"github.com/stormlens/tileindex/internal/repository/vector"
	healthuc "github.com/stormlens/tileindex/internal/usecase/health"
	indexinguc "github.com/stormlens/tileindex/internal/usecase/indexing"
	searchuc "github.com/stormlens/tileindex/internal/usecase/search"
	statsuc "github.com/stormlens/tileindex/internal/usecase/stats"
)

// fakeMeta is an in-memory metadata store.
type fakeMeta struct {
	tiles  map[string]tile.Tile
	putErr error
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{tiles: make(map[string]tile.Tile)}
}

func (f *fakeMeta) Put(_ context.Context, t tile.Tile) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.tiles[t.ImageID] = t
	return nil
}

func (f *fakeMeta) Get(_ context.Context, id string) (tile.Tile, error) {
	t, ok := f.tiles[id]
	if !ok {
		return tile.Tile{}, domain.ErrNotFound
	}
	return t, nil
}

func (f *fakeMeta) Delete(_ context.Context, id string) error {
	delete(f.tiles, id)
	return nil
}

func (f *fakeMeta) FindByURLHash(_ context.Context, hash string) (tile.Tile, bool, error) {
	for _, t := range f.tiles {
		if t.URLHash == hash {
			return t, true, nil
		}
	}
	return tile.Tile{}, false, nil
}

func (f *fakeMeta) ListRecent(_ context.Context, n int) ([]tile.Tile, error) {
	out := make([]tile.Tile, 0, n)
	for _, t := range f.tiles {
		out = append(out, t)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// fakeVectors is an in-memory vector store.
type fakeVectors struct {
	vecs     map[string]tile.Tile
	hits     []vector.Hit
	queryErr error
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{vecs: make(map[string]tile.Tile)}
}

func (f *fakeVectors) Upsert(_ context.Context, id string, _ []float32, t tile.Tile) error {
	f.vecs[id] = t
	return nil
}

func (f *fakeVectors) Delete(_ context.Context, id string) error {
	delete(f.vecs, id)
	return nil
}

func (f *fakeVectors) Query(_ context.Context, _ []float32, _ int) ([]vector.Hit, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.hits, nil
}

func (f *fakeVectors) Count(_ context.Context) (int, error) {
	return len(f.vecs), nil
}

type fakeEmbedder struct {
	textErr  error
	imageErr error
}

func (f *fakeEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, f.textErr
}

func (f *fakeEmbedder) EmbedImage(_ context.Context, _ []byte) ([]float32, error) {
	return []float32{0.1, 0.2}, f.imageErr
}

func (f *fakeEmbedder) HealthCheck(_ context.Context) error { return nil }

type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("image bytes"), nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

type testEnv struct {
	meta     *fakeMeta
	vectors  *fakeVectors
	embedder *fakeEmbedder
	fetcher  *fakeFetcher
	pinger   *fakePinger
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		meta:     newFakeMeta(),
		vectors:  newFakeVectors(),
		embedder: &fakeEmbedder{},
		fetcher:  &fakeFetcher{},
		pinger:   &fakePinger{},
	}

	indexSvc := indexinguc.New(env.meta, env.vectors, env.embedder, env.fetcher,
		[]string{"tiles.example.com"})
	searchSvc := searchuc.New(env.vectors, env.embedder,
		searchuc.Config{MaxResults: 100, DefaultK: 10, ROIMultiplier: 3})
	healthSvc := healthuc.New(env.pinger, env.vectors, env.embedder)
	statsSvc := statsuc.New(env.vectors, env.meta)

	srv := NewServer(indexSvc, searchSvc, healthSvc, statsSvc, zap.NewNop())

	r := chi.NewRouter()
	srv.RegisterRoutes(r, RouteOptions{IndexAuth: IndexAuthMiddleware([]string{"secret"})})

	env.server = httptest.NewServer(r)
	t.Cleanup(env.server.Close)
	return env
}
