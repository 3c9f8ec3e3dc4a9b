package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-party/internal/domain"
	"trivia-party/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogLoader(map[string]domain.Catalog{
			"main": sampleCatalog(),
		}),
	}
	repo := NewCatalogRepository(newClient(mr), loader, time.Minute)

	catalog, err := repo.GetCatalog(context.Background(), "main")
	if err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if len(catalog.Categories) != 1 || loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("trivia:catalog:main") {
		t.Fatalf("expected catalog cached in redis")
	}
	if ttl := mr.TTL("trivia:catalog:main"); ttl < time.Minute {
		t.Fatalf("expected ttl >= 1m, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetCatalog(context.Background(), "main")
	if err != nil {
		t.Fatalf("get cached catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Categories[0].Questions[0].Answers[1].Points != 10 {
		t.Fatalf("cached catalog lost answer data: %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), "main"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetCatalog(context.Background(), "main")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidation, loader calls=%d", loader.calls)
	}
}

func TestCatalogRepositoryIgnoresCorruptEntry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("trivia:catalog:main", "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogLoader(map[string]domain.Catalog{"main": sampleCatalog()}),
	}
	repo := NewCatalogRepository(newClient(mr), loader, 0)

	if _, err := repo.GetCatalog(context.Background(), "main"); err != nil {
		t.Fatalf("get catalog: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected corrupt entry to be reloaded")
	}
	if _, err := repo.GetCatalog(context.Background(), "other"); !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}

func TestRecordStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewRecordStore(newClient(mr), time.Hour)
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if _, ok, err := store.Load(ctx, "pick_history"); ok || err != nil {
		t.Fatalf("expected missing record, ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, "pick_history", []byte(`["a","b"]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("trivia:record:pick_history") {
		t.Fatalf("expected redis key to be set")
	}
	data, ok, err := store.Load(ctx, "pick_history")
	if err != nil || !ok || string(data) != `["a","b"]` {
		t.Fatalf("unexpected load %q ok=%v err=%v", data, ok, err)
	}

	if err := store.Delete(ctx, "pick_history"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("trivia:record:pick_history") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestRecordStoreReportsOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	store := NewRecordStore(client, 0)
	mr.Close()

	if err := store.Save(context.Background(), "k", []byte("1")); err == nil {
		t.Fatalf("expected save to fail once redis is gone")
	}
}

type countingLoader struct {
	memory.CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx, catalogID)
}

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		ID: "main",
		Categories: []domain.Category{
			{
				ID:   "math",
				Name: "Math",
				Questions: []domain.Question{
					{
						ID:   "q1",
						Text: "What is 2 + 2?",
						Answers: []domain.Answer{
							{ID: "a1", Text: "3"},
							{ID: "a2", Text: "4", IsCorrect: true, Points: 10},
						},
					},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
}
