package middleware

import (
	"net/http"
	"strings"

	"github.com/relevance-labs/cal-engine/internal/auth/ratelimit"
)

// RateLimit returns middleware that enforces per-key rate limits. It reads
// the KeyInfo from context (set by Auth middleware) and uses the key's
// configured rate_limit value. Requests without a key are passed through
// (let Auth middleware reject them instead).
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			info := GetKeyInfo(r.Context())
			if info == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(info.ID, info.RateLimit) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
