package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"churn-detection/internal/api"
	"churn-detection/internal/artifact"
	"churn-detection/internal/cfg"
	"churn-detection/internal/inference"
	"churn-detection/internal/logging"
	"churn-detection/internal/metrics"
	"churn-detection/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(logging.Options{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile})

	if err := c.RequireSecret(); err != nil {
		log.Fatal().Err(err).Msg("refusing to start without an API key")
	}

	store, err := artifact.Load(artifact.Paths{
		Preprocessor: c.PreprocessorPath,
		Forest:       c.ForestModelPath,
		XGBoost:      c.XGBoostModelPath,
	})
	if err != nil {
		var se *artifact.StartupError
		if errors.As(err, &se) {
			log.Fatal().Err(se.Err).Str("artifact", se.Artifact).Str("path", se.Path).Msg("artifact load failed")
		}
		log.Fatal().Err(err).Msg("artifact load failed")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	m.ObserveArtifacts(store.Info())

	journal := initializeStorage(c)
	if journal != nil {
		defer journal.Close()
		recordLoad(journal, c, store.Info())
	}

	svc, err := inference.NewService(store, metrics.NewWrapper(m), c.CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("inference service init failed")
	}

	var wg sync.WaitGroup
	if c.MetricsEnabled() {
		startMetricsServer(ctx, c)
	}
	startAPIServer(ctx, &wg, cancel, api.NewServer(c, svc, m))

	log.Info().
		Str("app", c.AppName).
		Str("version", c.Version).
		Int("cache_size", c.CacheSize).
		Msg("churn API ready")

	waitForShutdown(ctx, cancel, &wg)
}

// initializeStorage initializes storage if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without load journal")
		return nil
	}
	return store
}

// recordLoad journals this start and warns when artifacts changed since the
// previous one.
func recordLoad(journal *storage.Store, c cfg.Settings, info artifact.Info) {
	rec := storage.NewLoadRecord(c.AppName, c.Version, info)

	prev, err := journal.LastLoad()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read previous artifact load")
	} else if prev != nil {
		if changed := storage.ChangedArtifacts(*prev, rec); len(changed) > 0 {
			log.Warn().
				Strs("artifacts", changed).
				Time("previous_load", prev.LoadedAt).
				Msg("artifacts changed since previous start")
		}
	}

	if err := journal.RecordLoad(rec); err != nil {
		log.Warn().Err(err).Msg("failed to journal artifact load")
		return
	}
	log.Info().Str("load_id", rec.ID).Msg("artifact load journaled")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		log.Info().Str("addr", server.Addr).Msg("starting metrics server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// startAPIServer serves the API until ctx is canceled. A listener failure
// cancels ctx so the process exits.
func startAPIServer(ctx context.Context, wg *sync.WaitGroup, cancel context.CancelFunc, srv *api.Server) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown API server")
			}
		}()

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", srv.Addr()).Msg("API server failed")
			cancel()
		}
	}()
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all servers stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
