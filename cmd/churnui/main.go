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

	"churn-detection/internal/artifact"
	"churn-detection/internal/cfg"
	"churn-detection/internal/inference"
	"churn-detection/internal/logging"
	"churn-detection/internal/ui"

	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(logging.Options{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile})

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

	svc, err := inference.NewService(store, nil, c.CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("inference service init failed")
	}

	h, err := ui.New(c.AppName, c.Version, svc)
	if err != nil {
		log.Fatal().Err(err).Msg("form init failed")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.UIPort),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       c.RequestTimeout,
		WriteTimeout:      c.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting churn form server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("form server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
