// Command englishoo serves the vocabulary trainer: a JSON API over SQLite
// with FSRS scheduling, word-list syncing and AI enrichment.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/config"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/enrich"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/jobs"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/session"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/storage"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/web"
)

const shutdownGrace = 10 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load settings: .env file, config file, environment, flags.
	godotenv.Load() // a missing .env file is fine

	def := config.Default()
	flags := pflag.NewFlagSet("englishoo", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	flags.String("server.addr", def.Server.Addr, "listen address, host:port")
	flags.String("database.path", def.Database.Path, "path to the SQLite database file")
	flags.Int("review.newperday", def.Review.NewPerDay, "new cards introduced per day")
	flags.String("sync.dir", def.Sync.Dir, "directory for cloned word-list repositories")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return err
	}

	// 2. Open the database.
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.Database.Path)

	// 3. Build the scheduler and services.
	params := fsrs.DefaultParameters()
	params.DesiredRetention = cfg.Review.Retention
	params.MaximumInterval = cfg.Review.MaxInterval
	scheduler, err := fsrs.NewScheduler(params)
	if err != nil {
		return err
	}

	var enrichClient *enrich.Client
	if cfg.AI.Key != "" {
		enrichClient = enrich.NewClient(enrich.Config{
			Key:         cfg.AI.Key,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
		})
		logger.Info("enrichment enabled", "model", cfg.AI.Model)
	} else {
		logger.Info("enrichment disabled, no API key configured")
	}

	svc := session.NewService(db, scheduler, logger, cfg.Review.NewPerDay, cfg.Review.SessionLimit)
	handler := web.NewServer(db, svc, enrichClient, logger, cfg.Sync.Dir)

	// 4. Start the background jobs.
	runner := jobs.New(db, enrichClient, logger, cfg.Sync.Dir)
	runner.Start(cfg.Sync.Minutes)
	defer runner.Stop()

	// 5. Serve until interrupted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
