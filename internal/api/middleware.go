package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"churn-detection/internal/common"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// accessLog attaches logger to every request and writes one line per
// completed request.
func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	withLogger := hlog.NewHandler(logger)
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("remote", r.RemoteAddr).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})
	return func(next http.Handler) http.Handler {
		return withLogger(access(next))
	}
}

// allowAll answers every origin with a wildcard and never allows credentials.
func allowAll() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{common.ModelServedHeader},
		AllowCredentials: false,
		MaxAge:           600,
	})
}

// requireAPIKey rejects requests whose X-API-Key header does not equal the
// configured secret. It runs before any body is read.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(common.APIKeyHeader)
		if s.secret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.secret)) != 1 {
			if s.metrics != nil {
				s.metrics.AuthFailures.Inc()
			}
			hlog.FromRequest(r).Warn().
				Str("path", r.URL.Path).
				Bool("key_present", key != "").
				Msg("rejected request with invalid API key")
			respondDetail(w, http.StatusUnauthorized, common.ErrMsgInvalidAPIKey)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestMetrics counts requests by matched route pattern and status code.
func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, status)
	})
}
