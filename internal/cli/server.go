package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-party/internal/app"
	"trivia-party/internal/config"
	"trivia-party/internal/domain"
	"trivia-party/internal/infra/memory"
	transport "trivia-party/internal/transport/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia host server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

func runServer(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, opts.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newRedisClient(cfg)
	if client != nil {
		defer client.Close()
	}

	kind, err := resolveStore(opts.Store, cfg)
	if err != nil {
		return err
	}
	store, closeStore := openRecordStore(ctx, kind, cfg, client, log)
	defer closeStore()
	records := app.NewRecords(store, log.Named("records"))

	gameOpts, err := gameOptions(cfg, log)
	if err != nil {
		return err
	}
	catalog, catalogs, closeCatalog, err := loadCatalog(ctx, cfg, client, log)
	if err != nil {
		return err
	}
	defer closeCatalog()
	gameOpts.Catalogs = catalogs

	registry := memory.NewTeamRegistry(app.LoadTeams(ctx, records))
	game := app.NewGameService(ctx, catalog, registry, records, gameOpts)
	defer game.Close()
	teams := app.NewTeamService(registry, records, game, log.Named("teams"))

	port := opts.Port
	if port == "" {
		port = cfg.Server.Port
	}
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: transport.NewRouter(game, teams, log.Named("http")),
		// No read/write timeouts: they would persist on hijacked websocket connections.
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting trivia host",
			zap.String("addr", server.Addr),
			zap.String("store", kind),
			zap.String("catalog", catalog.ID),
			zap.Int("teams", len(registry.List())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// gameOptions maps the game section of the config onto service options.
func gameOptions(cfg config.Config, log *zap.Logger) (app.Options, error) {
	policy, err := domain.ParseRoundPolicy(cfg.Game.RoundPolicy)
	if err != nil {
		return app.Options{}, fmt.Errorf("game.roundPolicy: %w", err)
	}
	return app.Options{
		Transition: config.TTLDuration(cfg.Game.Transition, 10*time.Second),
		Tick:       config.TTLDuration(cfg.Game.Tick, 100*time.Millisecond),
		LockWindow: config.TTLDuration(cfg.Game.LockWindow, 750*time.Millisecond),
		Policy:     policy,
		Logger:     log.Named("game"),
	}, nil
}
