package file

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trivia-party/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// CatalogLoader reads a catalog document from disk. Files ending in .json are decoded as
// JSON, everything else as YAML.
type CatalogLoader struct {
	path string
}

func NewCatalogLoader(path string) *CatalogLoader {
	return &CatalogLoader{path: path}
}

// LoadCatalog ignores catalogID when the document carries no id of its own.
func (l *CatalogLoader) LoadCatalog(_ context.Context, catalogID string) (domain.Catalog, error) {
	raw, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return domain.Catalog{}, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, l.path)
	}
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	catalog, err := Decode(raw, strings.EqualFold(filepath.Ext(l.path), ".json"))
	if err != nil {
		return domain.Catalog{}, err
	}
	if catalog.ID == "" {
		catalog.ID = catalogID
	}
	if catalog.ID != catalogID {
		return domain.Catalog{}, fmt.Errorf("%w: %s holds catalog %q", domain.ErrCatalogNotFound, l.path, catalog.ID)
	}
	return catalog, nil
}

// Decode parses a catalog document.
func Decode(raw []byte, isJSON bool) (domain.Catalog, error) {
	var catalog domain.Catalog
	if isJSON {
		if err := json.Unmarshal(raw, &catalog); err != nil {
			return domain.Catalog{}, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
		}
		return catalog, nil
	}
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	return catalog, nil
}

// DefaultCatalog returns the built-in catalog used when no catalog source is configured.
func DefaultCatalog() domain.Catalog {
	catalog, err := Decode(defaultCatalog, false)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return catalog
}
