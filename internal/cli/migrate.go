package cli

import (
	"context"

	"trivia-party/internal/config"

	"github.com/spf13/cobra"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the sqlite or postgres store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), opts)
		},
	}
}

func runMigrations(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, opts.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	driver := storePostgres
	if opts.Store == storeSQLite || (opts.Store == "" && cfg.Postgres.URL == "") {
		driver = storeSQLite
	}
	db, err := openSQL(ctx, driver, cfg, log)
	if err != nil {
		return err
	}
	return db.Close()
}
