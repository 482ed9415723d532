package api

import (
	"net/http"
	"time"

	"github.com/relevance-labs/cal-engine/internal/auth/apikey"
	"github.com/relevance-labs/cal-engine/internal/auth/ratelimit"
	apimw "github.com/relevance-labs/cal-engine/internal/api/middleware"
	"github.com/relevance-labs/cal-engine/internal/cal/events"
	pkgmw "github.com/relevance-labs/cal-engine/pkg/middleware"
)

// NewRouter builds the full admin HTTP handler with all routes and the
// middleware chain.
//
// Route table:
//
//	GET    /health                  → admin health
//	GET    /api/v1/status           → controller status (queue length, R)
//	GET    /api/v1/stats            → aggregated control-loop stats
//	POST   /api/v1/admin/keys       → create API key
//	GET    /api/v1/admin/keys       → list API keys
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Auth → RateLimit → Timeout → handler
func NewRouter(h *Handler, statsHandler *events.Handler, validator *apikey.Validator, limiter *ratelimit.Limiter, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/stats", statsHandler.Stats)
	mux.HandleFunc("POST /api/v1/admin/keys", h.CreateAPIKey)
	mux.HandleFunc("GET /api/v1/admin/keys", h.ListAPIKeys)

	var chain http.Handler = mux
	if requestTimeout > 0 {
		chain = pkgmw.Timeout(requestTimeout)(chain)
	}
	chain = apimw.RateLimit(limiter)(chain)
	chain = apimw.Auth(validator)(chain)
	chain = apimw.CORS(apimw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
