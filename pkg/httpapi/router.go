// Package httpapi wires the proxy's HTTP front door: a chi router exposing
// POST /v1/messages, POST /v1/messages/count_tokens and GET /healthz, with
// request-id, recovery, timeout, CORS and auth middleware ahead of the
// forwarder.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/relaybridge/toolbridge/pkg/channel"
	"github.com/relaybridge/toolbridge/pkg/forwarder"
	"github.com/relaybridge/toolbridge/pkg/ratelimiter"
)

// Options configures the router.
type Options struct {
	Forwarder    *forwarder.Forwarder
	Channel      channel.Config
	ClientAPIKey string // empty disables auth entirely
	TimeoutMS    int
	RateLimiter  *ratelimiter.Limiter
}

// NewRouter builds the complete http.Handler for the service.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	timeout := time.Duration(opts.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "x-api-key", "anthropic-version"},
	}))

	h := &handlers{
		forwarder: opts.Forwarder,
		channel:   opts.Channel,
		rate:      opts.RateLimiter,
	}

	r.Get("/healthz", h.health)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(opts.ClientAPIKey))
		r.Use(rateLimitMiddleware(opts.RateLimiter))
		r.Post("/v1/messages", h.postMessages)
		r.Post("/v1/messages/count_tokens", h.countTokens)
	})

	return r
}
