package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hyprice/api"
	"hyprice/cache"
	"hyprice/config"
	"hyprice/monitoring"
	"hyprice/refresh"
	"hyprice/render"
	"hyprice/scheduler"
	"hyprice/sink"
	"hyprice/source"
	"hyprice/storage"
	"hyprice/utils"
	"hyprice/watchlist"
)

// Run wires the engine together and blocks until shutdown.
func Run(cfg *config.Config) error {
	if err := utils.InitLogger(cfg.App.LogDir, cfg.App.Debug); err != nil {
		return err
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	store := watchlist.NewStore(backend)
	if err := store.LoadFromBackend(); err != nil {
		// In-memory state is authoritative; start empty and keep going.
		utils.Error(err, "Starting with empty subscriber state")
	}

	priceCache := cache.New(cfg.Refresh.CacheTTL, cfg.Refresh.SweepInterval)
	priceCache.StartSweeper()
	defer priceCache.Close()

	upstream := source.NewDexScreenerClient(cfg.Source.BaseURL, cfg.Source.Timeout)
	direct := source.NewRetrier(upstream, cfg.Refresh.RetryDelay, cfg.Refresh.DirectMaxRetries)
	engine := refresh.NewEngine(store, priceCache, upstream, direct)

	viewFeed := sink.NewWSHub()
	defer viewFeed.Close()
	out := sink.NewMultiSink(sink.LogSink{}, viewFeed)

	manager := scheduler.NewManager(engine, store, render.Render, out, cfg.Refresh.Interval)
	defer manager.StopAll()

	// Resume loops for every subscriber known before the restart.
	for _, id := range store.Subscribers() {
		manager.Start(id)
	}

	monitoring.RegisterLoopCounter(manager.Count)
	monitoring.RegisterHealthCheck("storage", func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return backend.Ping(ctx) == nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", monitoring.HealthCheckHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", viewFeed.Handler())
	api.NewHandler(store, engine, manager, out).Register(mux)

	server := &http.Server{
		Addr:    cfg.App.HTTPAddr,
		Handler: utils.RequestLogger(mux),
	}

	serverErr := make(chan error, 1)
	go func() {
		utils.Logger.Infow("HTTP server listening", "addr", cfg.App.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	utils.Logger.Infow("HyPrice engine running",
		"refresh_interval", cfg.Refresh.Interval,
		"cache_ttl", cfg.Refresh.CacheTTL,
		"storage", cfg.Storage.Backend,
		"subscribers", len(store.Subscribers()),
	)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-interrupt:
		utils.Logger.Infow("Shutting down", "signal", sig.String())
	}

	manager.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Error(err, "HTTP server shutdown failed")
	}

	utils.Logger.Infow("Shutdown complete")
	return nil
}

func newBackend(cfg *config.Config) (storage.PersistenceBackend, error) {
	switch cfg.Storage.Backend {
	case "postgres", "redis":
		// Networked backends may still be coming up when this process
		// boots; retry the initial connection with exponential backoff
		// instead of failing on a startup race.
		var backend storage.PersistenceBackend
		err := backoff.RetryNotify(func() error {
			var err error
			backend, err = connectBackend(cfg)
			return err
		}, utils.NewExponentialBackoff(), func(err error, next time.Duration) {
			utils.Logger.Warnw("Storage connection failed, retrying",
				"backend", cfg.Storage.Backend,
				"retry_in", next,
				"error", err)
		})
		return backend, err
	default:
		return storage.NewFileStore(cfg.Storage.FilePath)
	}
}

func connectBackend(cfg *config.Config) (storage.PersistenceBackend, error) {
	if cfg.Storage.Backend == "postgres" {
		return storage.NewPostgresStore(cfg.Storage.PostgresDSN)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return storage.NewRedisStore(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
}
