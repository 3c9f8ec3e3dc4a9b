package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trivia-party/internal/app"
	"trivia-party/internal/config"
	"trivia-party/internal/domain"
	"trivia-party/internal/infra/file"
	"trivia-party/internal/infra/memory"
	pgloader "trivia-party/internal/infra/postgres"
	redisstore "trivia-party/internal/infra/redis"
	"trivia-party/internal/infra/sqlstore"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewImportCatalogCmd stores a YAML or JSON catalog document in SQL storage.
func NewImportCatalogCmd(opts *Options) *cobra.Command {
	var catalogID string
	cmd := &cobra.Command{
		Use:   "import-catalog <file>",
		Short: "Import a catalog document into SQL storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportCatalog(cmd.Context(), opts, args[0], catalogID)
		},
	}
	cmd.Flags().StringVar(&catalogID, "id", "", "catalog id, overrides the document's own id")
	return cmd
}

func runImportCatalog(ctx context.Context, opts *Options, path, catalogID string) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, opts.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	catalog, err := file.Decode(raw, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return err
	}
	if catalogID != "" {
		catalog.ID = catalogID
	}
	if catalog.ID == "" {
		catalog.ID = cfg.Catalog.ID
	}

	driver := storePostgres
	if opts.Store == storeSQLite || (opts.Store == "" && cfg.Postgres.URL == "") {
		driver = storeSQLite
	}
	db, err := openSQL(ctx, driver, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlstore.NewCatalogStore(db).SaveCatalog(ctx, catalog); err != nil {
		return err
	}
	if client := newRedisClient(cfg); client != nil {
		defer client.Close()
		if err := redisstore.NewCatalogRepository(client, nil, 0).Invalidate(ctx, catalog.ID); err != nil {
			log.Warn("catalog cache not invalidated", zap.String("catalog", catalog.ID), zap.Error(err))
		}
	}
	log.Info("catalog imported",
		zap.String("catalog", catalog.ID),
		zap.String("driver", driver),
		zap.Int("categories", len(catalog.Categories)))
	return nil
}

// loadCatalog resolves the catalog source (file, Postgres, SQLite, built-in) behind a TTL cache.
// The returned repository stays open so the game can reload the catalog on restart.
func loadCatalog(ctx context.Context, cfg config.Config, client *redis.Client, log *zap.Logger) (domain.Catalog, app.CatalogRepository, func(), error) {
	cleanup := func() {}
	var loader memory.CatalogLoader
	switch {
	case cfg.Catalog.Path != "":
		loader = file.NewCatalogLoader(cfg.Catalog.Path)
	case cfg.Postgres.URL != "":
		pool, err := pgloader.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Warn("postgres catalog source unavailable", zap.Error(err))
			break
		}
		cleanup = pool.Close
		loader = withFallback(pgloader.NewCatalogLoader(pool), cfg.Catalog.ID, log)
	case cfg.SQLite.Path != "":
		db, err := openSQL(ctx, storeSQLite, cfg, log)
		if err != nil {
			log.Warn("sqlite catalog source unavailable", zap.Error(err))
			break
		}
		cleanup = func() { _ = db.Close() }
		loader = withFallback(sqlstore.NewCatalogStore(db), cfg.Catalog.ID, log)
	}
	if loader == nil {
		loader = builtinLoader(cfg.Catalog.ID)
	}

	ttl := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var repo app.CatalogRepository
	if client != nil {
		repo = redisstore.NewCatalogRepository(client, loader, ttl)
	} else {
		repo = memory.NewCatalogRepository(loader, ttl)
	}
	catalog, err := repo.GetCatalog(ctx, cfg.Catalog.ID)
	if err != nil {
		cleanup()
		return domain.Catalog{}, nil, nil, fmt.Errorf("load catalog %q: %w", cfg.Catalog.ID, err)
	}
	return catalog, repo, cleanup, nil
}

func builtinLoader(catalogID string) *memory.StaticCatalogLoader {
	catalog := file.DefaultCatalog()
	catalog.ID = catalogID
	return memory.NewStaticCatalogLoader(map[string]domain.Catalog{catalogID: catalog})
}

// fallbackLoader serves the built-in catalog when the database has not been seeded yet.
type fallbackLoader struct {
	primary  memory.CatalogLoader
	fallback memory.CatalogLoader
	log      *zap.Logger
}

func withFallback(primary memory.CatalogLoader, catalogID string, log *zap.Logger) memory.CatalogLoader {
	return &fallbackLoader{primary: primary, fallback: builtinLoader(catalogID), log: log}
}

func (l *fallbackLoader) LoadCatalog(ctx context.Context, catalogID string) (domain.Catalog, error) {
	catalog, err := l.primary.LoadCatalog(ctx, catalogID)
	if errors.Is(err, domain.ErrCatalogNotFound) {
		l.log.Warn("catalog not stored, serving built-in catalog", zap.String("catalog", catalogID))
		return l.fallback.LoadCatalog(ctx, catalogID)
	}
	return catalog, err
}
