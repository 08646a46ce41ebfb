// Package router builds the HTTP route table of the service.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/globe-markers/internal/auth"
	"github.com/aanand-mishra/globe-markers/internal/http/handlers/account"
	"github.com/aanand-mishra/globe-markers/internal/http/handlers/marker"
	"github.com/aanand-mishra/globe-markers/internal/http/handlers/page"
	"github.com/aanand-mishra/globe-markers/internal/http/middleware"
	"github.com/aanand-mishra/globe-markers/internal/storage"
	"github.com/aanand-mishra/globe-markers/internal/utils/response"
)

// MarkersPath is the public list endpoint, also referenced by the index page.
const MarkersPath = "/api/markers/"

// Options are the dependencies and knobs of the route table.
type Options struct {
	Store  storage.Storage
	Tokens *auth.TokenManager
	Logger *slog.Logger

	// RateLimitRequests per RateLimitWindow, per client IP, on the
	// mutating and credential routes. Zero disables rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// TrustedProxies are the peer IPs whose X-Forwarded-For / X-Real-IP
	// headers name the client. Headers from any other peer are ignored.
	TrustedProxies []string

	AllowedOrigins []string
}

// New returns the HTTP handler serving every route.
//
// Route table:
//
//	GET          /                                → index page
//	GET          /metrics                         → Prometheus metrics
//	GET          /api/health/                     → storage health
//	GET          /api/markers/                    → list markers (public)
//	POST         /api/register/                   → create account
//	POST         /api/login/                      → issue bearer token
//	POST         /api/add-marker/                 → create marker       (auth)
//	POST|DELETE  /api/delete-marker/{markerID}/   → delete owned marker (auth)
//	DELETE       /api/account/                    → delete account      (auth)
func New(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.ClientIP(opts.TrustedProxies))
	r.Use(middleware.Logger(opts.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Metrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusNotFound, response.Response{Status: response.StatusError, Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusMethodNotAllowed, response.Response{Status: response.StatusError, Error: "method not allowed"})
	})

	r.Get("/", page.Index(MarkersPath))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health/", page.Health(opts.Store))
	r.Get(MarkersPath, marker.List(opts.Store))

	limit := rateLimit(opts.RateLimitRequests, opts.RateLimitWindow)

	r.Group(func(r chi.Router) {
		r.Use(limit)

		r.Post("/api/register/", account.Register(opts.Store))
		r.Post("/api/login/", account.Login(opts.Store, opts.Tokens))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser(opts.Tokens, opts.Store))
		r.Use(limit)

		r.Post("/api/add-marker/", marker.Add(opts.Store))

		deletePath := "/api/delete-marker/{" + marker.IDParam + "}/"
		r.Post(deletePath, marker.Delete(opts.Store))
		r.Delete(deletePath, marker.Delete(opts.Store))

		r.Delete("/api/account/", account.Delete(opts.Store))
	})

	return r
}

func rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			response.WriteJSON(w, http.StatusTooManyRequests,
				response.Response{Status: response.StatusError, Error: "too many requests"})
		}),
	)
}
