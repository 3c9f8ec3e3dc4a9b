package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trivia-party/internal/domain"

	"github.com/uptrace/bun"
)

type catalogRow struct {
	bun.BaseModel `bun:"table:catalogs,alias:c"`

	ID        string    `bun:"id,pk"`
	Data      string    `bun:"data,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// CatalogStore reads and writes catalog documents in the catalogs table.
type CatalogStore struct {
	db *bun.DB
}

func NewCatalogStore(db *bun.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// SaveCatalog validates and upserts a catalog under its id.
func (s *CatalogStore) SaveCatalog(ctx context.Context, catalog domain.Catalog) error {
	if err := catalog.Validate(); err != nil {
		return err
	}
	if catalog.ID == "" {
		return fmt.Errorf("%w: catalog id is required", domain.ErrInvalidCatalog)
	}
	raw, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	row := catalogRow{ID: catalog.ID, Data: string(raw), UpdatedAt: time.Now().UTC()}
	_, err = s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

func (s *CatalogStore) LoadCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	var row catalogRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", catalogID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	var catalog domain.Catalog
	if err := json.Unmarshal([]byte(row.Data), &catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return catalog, nil
}
