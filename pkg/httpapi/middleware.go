package httpapi

import (
	"net/http"

	"github.com/relaybridge/toolbridge/pkg/ratelimiter"
)

// clientAPIKey extracts the client-presented key from either header this
// proxy's clients commonly use: Anthropic's x-api-key or a bearer token.
func clientAPIKey(r *http.Request) string {
	if k := r.Header.Get("x-api-key"); k != "" {
		return k
	}
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	return ""
}

// authMiddleware enforces ClientAPIKey when one is configured. required ==
// "" disables auth entirely, matching an intentionally open deployment.
func authMiddleware(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if required == "" {
				next.ServeHTTP(w, r)
				return
			}
			if clientAPIKey(r) != required {
				writeError(w, http.StatusUnauthorized, "authentication_error", "invalid x-api-key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects requests once the configured per-minute
// ceiling is exceeded. A nil limiter disables this entirely.
func rateLimitMiddleware(limiter *ratelimiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate_limit_error", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
