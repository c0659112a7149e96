package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/services/api/auth"
	"github.com/NordCoder/Uptimer/internal/services/api/check"
	"github.com/NordCoder/Uptimer/internal/services/api/httpx"
	"github.com/NordCoder/Uptimer/internal/services/api/middleware"
)

type Deps struct {
	Auth    *auth.Handler
	Checks  *check.Handler
	Limiter *middleware.RateLimiter
	Health  func(ctx context.Context) error
}

// NewRouter wires the public API:
//
//	RealIP → RequestID → Recover → Logging → RateLimit → [Auth] → handler
//
// and wraps everything in an otelhttp handler.
func NewRouter(log *zap.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(log))
	r.Use(middleware.Logging(log))

	r.Get("/healthz", healthz(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Post("/users", d.Auth.SignUp)
		r.Route("/tokens", func(r chi.Router) {
			r.Post("/", d.Auth.CreateToken)
			r.Get("/{id}", d.Auth.GetToken)
			r.Put("/{id}", d.Auth.ExtendToken)
			r.Delete("/{id}", d.Auth.DeleteToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Middleware)

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", d.Auth.Me)
				r.Put("/", d.Auth.UpdateMe)
				r.Delete("/", d.Auth.DeleteMe)
			})

			r.Route("/checks", func(r chi.Router) {
				r.Post("/", d.Checks.Create)
				r.Get("/", d.Checks.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", d.Checks.Get)
					r.Put("/", d.Checks.Update)
					r.Delete("/", d.Checks.Delete)
					r.Post("/reset", d.Checks.Reset)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return otelhttp.NewHandler(r, "uptimer.api")
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				httpx.WriteError(w, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
