package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func newCORSMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// clientLimiter hands out one token bucket per client address. Entries idle
// past the horizon are dropped on the next sweep.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	swept   time.Time
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newRateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = int(rps)
	}
	cl := &clientLimiter{
		clients: map[string]*limiterEntry{},
		rps:     rate.Limit(rps),
		burst:   burst,
		swept:   time.Now(),
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.allow(clientAddr(r)) {
				respondStatusError(w, newAPIError(http.StatusTooManyRequests, "rate_limited", "too many requests", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (cl *clientLimiter) allow(addr string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	now := time.Now()
	if now.Sub(cl.swept) > 10*time.Minute {
		for k, e := range cl.clients {
			if now.Sub(e.seen) > 10*time.Minute {
				delete(cl.clients, k)
			}
		}
		cl.swept = now
	}
	e, ok := cl.clients[addr]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.clients[addr] = e
	}
	e.seen = now
	return e.limiter.Allow()
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func newRequestLogMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
