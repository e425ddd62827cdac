package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/web/ratelimit"
	"github.com/ubiquits/ubiquits/internal/web/response"
)

// KeyFunc extracts the rate limit key from a request
type KeyFunc func(*http.Request) string

// RateLimit throttles requests per key. Requests without a key and limiter
// failures are let through.
func RateLimit(limiter ratelimit.Limiter, key KeyFunc, logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.Nop()
	}
	log := logger.Source("ratelimit")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			info, err := limiter.Allow(r.Context(), k)
			if err != nil {
				log.Error("rate limit check failed", "key", k, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				retry := info.RetryAfter(time.Now())
				w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
				log.Info("rate limit exceeded", "key", k, "path", r.URL.Path)
				response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RemoteIP keys requests by the host of the peer address. Forwarding headers
// are ignored since clients control them.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
