package indexing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stormlens/tileindex/internal/domain"
	"github.com/stormlens/tileindex/internal/domain/tile"
)

// --- Index: happy path ---

func TestIndex_HappyPath(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	var storedMeta tile.Tile
	var storedVec []float32
	deps.meta.putFn = func(_ context.Context, rec tile.Tile) error {
		storedMeta = rec
		return nil
	}
	deps.vectors.upsertFn = func(_ context.Context, id string, vec []float32, rec tile.Tile) error {
		if id != "tile-1" {
			t.Errorf("unexpected id: %s", id)
		}
		storedVec = vec
		return nil
	}

	out, err := svc.Index(ctx, testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Duplicate {
		t.Fatal("unexpected duplicate outcome")
	}
	if out.ImageID != "tile-1" {
		t.Errorf("unexpected image id: %s", out.ImageID)
	}
	if out.CenterLat != 18.025 || out.CenterLon != -77.45 {
		t.Errorf("unexpected center: %f, %f", out.CenterLat, out.CenterLon)
	}

	if storedMeta.URLHash == "" || len(storedMeta.URLHash) != 16 {
		t.Errorf("url hash not computed: %q", storedMeta.URLHash)
	}
	if storedMeta.IndexedAt == "" {
		t.Error("indexed_at not set")
	}
	if storedMeta.CenterLat != 18.025 {
		t.Errorf("center not stored: %f", storedMeta.CenterLat)
	}
	if len(storedVec) == 0 {
		t.Error("vector not stored")
	}
}

// --- Index: validation ---

func TestIndex_ValidationOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantMsg string
	}{
		{
			name:    "missing image_id",
			mutate:  func(r *Request) { r.ImageID = "" },
			wantMsg: "image_id is required",
		},
		{
			name:    "missing tile_url",
			mutate:  func(r *Request) { r.TileURL = "" },
			wantMsg: "tile_url is required",
		},
		{
			name:    "missing bounds",
			mutate:  func(r *Request) { r.Bounds = nil },
			wantMsg: "bounds is required",
		},
		{
			name:    "missing image_id reported before bad url",
			mutate:  func(r *Request) { r.ImageID = ""; r.TileURL = "ftp://nope" },
			wantMsg: "image_id is required",
		},
		{
			name:    "bad id characters",
			mutate:  func(r *Request) { r.ImageID = "a/b" },
			wantMsg: "image_id",
		},
		{
			name:    "url not in allow list",
			mutate:  func(r *Request) { r.TileURL = "https://evil.example.org/x.png" },
			wantMsg: "not allowed",
		},
		{
			name:    "inverted bounds",
			mutate:  func(r *Request) { r.Bounds.West, r.Bounds.East = r.Bounds.East, r.Bounds.West },
			wantMsg: "west",
		},
		{
			name:    "bad thumb url",
			mutate:  func(r *Request) { r.ThumbURL = "https://evil.example.org/t.png" },
			wantMsg: "not allowed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testRequest()
			tc.mutate(req)

			_, err := svc.Index(ctx, req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tc.wantMsg, err.Error())
			}
		})
	}
}

// --- Index: duplicates ---

func TestIndex_DuplicateURLSkips(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.meta.findByURLHashFn = func(_ context.Context, hash string) (tile.Tile, bool, error) {
		if hash != tile.URLHash(testRequest().TileURL) {
			t.Errorf("unexpected hash: %s", hash)
		}
		return tile.Tile{ImageID: "older-tile"}, true, nil
	}
	deps.meta.putFn = func(_ context.Context, _ tile.Tile) error {
		t.Fatal("metadata must not be written for duplicates")
		return nil
	}
	deps.fetcher.fetchFn = func(_ context.Context, _ string) ([]byte, error) {
		t.Fatal("image must not be downloaded for duplicates")
		return nil, nil
	}

	out, err := svc.Index(ctx, testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Duplicate {
		t.Fatal("expected duplicate outcome")
	}
	if out.ExistingID != "older-tile" {
		t.Errorf("unexpected existing id: %s", out.ExistingID)
	}
}

func TestIndex_SameIDReindexes(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.meta.findByURLHashFn = func(_ context.Context, _ string) (tile.Tile, bool, error) {
		return tile.Tile{ImageID: "tile-1"}, true, nil
	}

	out, err := svc.Index(ctx, testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Duplicate {
		t.Fatal("same id should reindex, not report a duplicate")
	}
}

// --- Index: upstream failures ---

func TestIndex_FetchError(t *testing.T) {
	svc, deps := newTestService(t)
	deps.fetcher.fetchFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, domain.ErrFetch
	}

	_, err := svc.Index(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestIndex_EmbedError(t *testing.T) {
	svc, deps := newTestService(t)
	deps.embedder.embedImageFn = func(_ context.Context, _ []byte) ([]float32, error) {
		return nil, domain.ErrEmbeddingProvider
	}
	deps.meta.putFn = func(_ context.Context, _ tile.Tile) error {
		t.Fatal("metadata must not be written when embedding fails")
		return nil
	}

	_, err := svc.Index(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}

// --- Index: rollback ---

func TestIndex_VectorFailureRollsBackMetadata(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	metaDeleted := false
	vecDeleted := false
	deps.vectors.upsertFn = func(_ context.Context, _ string, _ []float32, _ tile.Tile) error {
		return errors.New("OOM")
	}
	deps.meta.deleteFn = func(_ context.Context, id string) error {
		if id != "tile-1" {
			t.Errorf("unexpected rollback id: %s", id)
		}
		metaDeleted = true
		return nil
	}
	deps.vectors.deleteFn = func(_ context.Context, _ string) error {
		vecDeleted = true
		return nil
	}

	_, err := svc.Index(ctx, testRequest())
	if err == nil {
		t.Fatal("expected error when vector write fails")
	}
	if !metaDeleted {
		t.Error("expected metadata rollback")
	}
	if !vecDeleted {
		t.Error("expected vector rollback")
	}
}

func TestIndex_RollbackFailureDoesNotMaskOriginalError(t *testing.T) {
	svc, deps := newTestService(t)

	deps.vectors.upsertFn = func(_ context.Context, _ string, _ []float32, _ tile.Tile) error {
		return errors.New("vector write failed")
	}
	deps.meta.deleteFn = func(_ context.Context, _ string) error {
		return errors.New("rollback failed too")
	}

	_, err := svc.Index(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "vector write failed") {
		t.Fatalf("expected original vector error, got %v", err)
	}
}

// --- Delete ---

func TestDelete_RemovesBothStores(t *testing.T) {
	svc, deps := newTestService(t)

	metaDeleted, vecDeleted := false, false
	deps.meta.deleteFn = func(_ context.Context, id string) error {
		metaDeleted = id == "tile-1"
		return nil
	}
	deps.vectors.deleteFn = func(_ context.Context, id string) error {
		vecDeleted = id == "tile-1"
		return nil
	}

	if err := svc.Delete(context.Background(), "tile-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !metaDeleted || !vecDeleted {
		t.Errorf("expected both stores cleared: meta=%v vec=%v", metaDeleted, vecDeleted)
	}
}

func TestDelete_UnknownIDTouchesNeitherStore(t *testing.T) {
	svc, deps := newTestService(t)
	deps.meta.getFn = func(_ context.Context, _ string) (tile.Tile, error) {
		return tile.Tile{}, domain.ErrNotFound
	}
	deleted := false
	deps.meta.deleteFn = func(_ context.Context, _ string) error {
		deleted = true
		return nil
	}
	deps.vectors.deleteFn = func(_ context.Context, _ string) error {
		deleted = true
		return nil
	}

	err := svc.Delete(context.Background(), "tile-unknown")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if deleted {
		t.Error("delete issued for unknown id")
	}
}

func TestDelete_InvalidID(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Delete(context.Background(), "bad/id")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDelete_MetadataError(t *testing.T) {
	svc, deps := newTestService(t)
	deps.meta.deleteFn = func(_ context.Context, _ string) error {
		return errors.New("OOM")
	}

	if err := svc.Delete(context.Background(), "tile-1"); err == nil {
		t.Fatal("expected error when metadata delete fails")
	}
}
