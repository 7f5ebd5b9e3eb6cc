package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/connor-ruff/fishybowl/internal/archive"
	"github.com/connor-ruff/fishybowl/internal/config"
	"github.com/connor-ruff/fishybowl/internal/httpapi"
	"github.com/connor-ruff/fishybowl/internal/hub"
	"github.com/connor-ruff/fishybowl/internal/logger"
	"github.com/connor-ruff/fishybowl/internal/timer"
	"github.com/connor-ruff/fishybowl/internal/ws"
)

const archiveQueueSize = 64

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		recorder archive.Recorder = archive.Nop{}
		store    *archive.GormStore
	)
	if cfg.DatabaseURL != "" {
		store, err = archive.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		recorder = archive.NewQueue(store, archiveQueueSize, log.Named("archive"))
		log.Info("archiving finished games")
	} else {
		log.Info("DATABASE_URL not set, finished games are not archived")
	}

	timers := timer.NewRegistry()
	h := hub.NewHub(ctx, hub.Options{
		Timers:      timers,
		Archive:     recorder,
		Log:         log.Named("rooms"),
		TurnSeconds: cfg.TurnSeconds,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(h, log.Named("http"), ws.Options{
			OriginPatterns:   cfg.AllowedOrigins,
			ActionsPerSecond: cfg.ActionsPerSecond,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(sctx)
		h.Shutdown()
		timers.StopAll()
		err = multierr.Append(err, recorder.Close(sctx))
		if store != nil {
			err = multierr.Append(err, store.Close())
		}
		return err
	})
	return g.Wait()
}
