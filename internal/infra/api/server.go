package api

import (
	"net/http"
	"time"

	"brontie-core/internal/config"
	"brontie-core/internal/infra/api/apiv1"
	"brontie-core/internal/infra/redis"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter assembles the full HTTP surface: v1 API behind auth and
// rate limiting, plus the Prometheus scrape endpoint.
func NewRouter(cfg *config.APIConfig, srv *apiv1.Server, limiter *redis.RateLimiter, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return Chain(next, TraceID(logger), Recover(logger), RequestLog(logger), Timeout(30*time.Second))
	})
	r.Use(apiv1.JWTAuth(cfg.JWTSecret))
	if limiter != nil && cfg.RateLimit > 0 {
		r.Use(RateLimit(limiter, cfg.RateLimit, logger))
	}

	apiv1.RegisterAPIV1(r, srv)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// RateLimit caps mutating requests per client per minute. Reads pass through;
// a redis outage fails open so the API stays available.
func RateLimit(limiter *redis.RateLimiter, perMinute int, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			key := redis.ClientEndpointKey(clientIP(r), r.URL.Path)
			ok, err := limiter.Allow(r.Context(), key, perMinute, time.Minute)
			if err != nil {
				logger.Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
