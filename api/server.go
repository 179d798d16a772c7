/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend
  5. Identity:   X-Subscriber-ID / X-User-ID (under /api only)

ROUTE GROUPS:
  /api/pools               Pool create/update
  /api/service-pools/*     Pool list/delete
  /api/not-available-dates Calendar expansion
  /healthz                 Liveness/readiness

SECURITY NOTE:
  Identity headers are trusted as-is. Run behind a gateway that
  authenticates callers and sets them.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/pooling"
)

const (
	HeaderSubscriberID = "X-Subscriber-ID"
	HeaderUserID       = "X-User-ID"
)

// DefaultAllowedOrigins is used when RouterOptions leaves origins empty.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// RequestLogging enables chi's request logger.
	RequestLogging bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if opts.RequestLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderSubscriberID, HeaderUserID},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(Identity)

		r.Route("/pools", func(r chi.Router) {
			r.Post("/", h.CreatePool)
			r.Put("/", h.UpdatePool)
		})

		r.Route("/service-pools", func(r chi.Router) {
			r.Get("/list", h.ListPools)
			r.Delete("/delete", h.DeletePools)
		})

		r.Post("/not-available-dates", h.NotAvailableDates)
	})

	return r
}

// =============================================================================
// IDENTITY
// =============================================================================

type identity struct {
	Subscriber pooling.SubscriberID
	User       pooling.UserID
}

type identityKey struct{}

// Identity reads the caller's subscriber and user ids from headers and
// rejects requests without them.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subscriber, err := strconv.ParseInt(r.Header.Get(HeaderSubscriberID), 10, 64)
		if err != nil || subscriber <= 0 {
			writeUnauthorized(w, HeaderSubscriberID)
			return
		}
		user, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
		if err != nil || user <= 0 {
			writeUnauthorized(w, HeaderUserID)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, identity{
			Subscriber: pooling.SubscriberID(subscriber),
			User:       pooling.UserID(user),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) identity {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func writeUnauthorized(w http.ResponseWriter, header string) {
	writeJSON(w, http.StatusUnauthorized, Response{generic.Envelope{
		Message:        "Missing or invalid " + header + " header",
		TranslationKey: "UNAUTHORIZED",
	}})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
