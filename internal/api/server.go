// Package api serves churn predictions over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"churn-detection/internal/cfg"
	"churn-detection/internal/inference"
	"churn-detection/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Server provides the HTTP API for churn predictions
type Server struct {
	appName string
	version string
	secret  string
	timeout time.Duration

	svc     *inference.Service
	metrics *metrics.Metrics
	router  chi.Router
	server  *http.Server
}

// NewServer wires the routes. m may be nil when metrics are disabled.
func NewServer(settings cfg.Settings, svc *inference.Service, m *metrics.Metrics) *Server {
	s := &Server{
		appName: settings.AppName,
		version: settings.Version,
		secret:  settings.SecretKeyToken,
		timeout: settings.RequestTimeout,
		svc:     svc,
		metrics: m,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", settings.APIPort),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.timeout,
		WriteTimeout:      s.timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log.Logger))
	r.Use(s.requestMetrics)
	r.Use(middleware.Recoverer)
	r.Use(allowAll())
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", s.handleWelcome)
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/model/info", s.handleModelInfo)
		r.Post("/predict/{model}", s.handlePredict)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting churn API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
