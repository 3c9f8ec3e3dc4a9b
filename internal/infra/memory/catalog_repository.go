package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia-party/internal/domain"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches catalog content from a backing store (file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, catalogID string) (domain.Catalog, error)
}

// CatalogRepository keeps validated catalogs in process memory. Entries live for the TTL
// plus up to 10% jitter; ttl <= 0 sends every read to the loader. When a reload fails
// with anything but ErrCatalogNotFound, the last good copy is served.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  clockwork.Clock
	sf     singleflight.Group

	mu      sync.Mutex
	rnd     *rand.Rand
	entries map[string]catalogEntry
}

type catalogEntry struct {
	catalog   domain.Catalog
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]catalogEntry),
	}
}

// WithClock swaps the clock used for expiry.
func (r *CatalogRepository) WithClock(clock clockwork.Clock) *CatalogRepository {
	r.clock = clock
	return r
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	if catalog, fresh := r.lookup(catalogID); fresh {
		return catalog, nil
	}
	result, err, _ := r.sf.Do(catalogID, func() (interface{}, error) {
		if catalog, fresh := r.lookup(catalogID); fresh {
			return catalog, nil
		}
		return r.reload(ctx, catalogID)
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate forgets the cached copy of catalogID.
func (r *CatalogRepository) Invalidate(catalogID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, catalogID)
}

func (r *CatalogRepository) lookup(catalogID string) (domain.Catalog, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[catalogID]
	if !ok || !entry.expiresAt.After(r.clock.Now()) {
		return domain.Catalog{}, false
	}
	return entry.catalog, true
}

func (r *CatalogRepository) reload(ctx context.Context, catalogID string) (domain.Catalog, error) {
	catalog, err := r.loader.LoadCatalog(ctx, catalogID)
	if err == nil {
		if verr := catalog.Validate(); verr != nil {
			err = fmt.Errorf("catalog %q: %w", catalogID, verr)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if stale, ok := r.entries[catalogID]; ok && !errors.Is(err, domain.ErrCatalogNotFound) {
			return stale.catalog, nil
		}
		if errors.Is(err, domain.ErrCatalogNotFound) {
			delete(r.entries, catalogID)
		}
		return domain.Catalog{}, err
	}
	if r.ttl > 0 {
		jitter := time.Duration(r.rnd.Int63n(int64(r.ttl)/10 + 1))
		r.entries[catalogID] = catalogEntry{catalog: catalog, expiresAt: r.clock.Now().Add(r.ttl + jitter)}
	}
	return catalog, nil
}

// StaticCatalogLoader serves catalogs from a fixed map (built-in content, tests).
type StaticCatalogLoader struct {
	catalogs map[string]domain.Catalog
}

func NewStaticCatalogLoader(catalogs map[string]domain.Catalog) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalogs: catalogs}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context, catalogID string) (domain.Catalog, error) {
	if catalog, ok := l.catalogs[catalogID]; ok {
		return catalog, nil
	}
	return domain.Catalog{}, domain.ErrCatalogNotFound
}
