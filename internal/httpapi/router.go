package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pingmedaddy/pingmedaddy/internal/config"
)

// NewRouter assembles the full route tree: chi's standard middleware
// stack (request id, real ip, logger, recoverer, compression), CORS and
// security headers on every route, a per-IP rate limiter scoped to
// /api so health checks and metrics scraping never compete with API
// clients for the same bucket, and JWT auth on everything under /api
// except login. limiter is owned by the caller so its cleanup
// goroutine's lifetime can be tied to the process, not the router.
func NewRouter(cfg *config.Config, reg TargetRegistry, engine InsightsEngine, sampleReader SampleReader, tracer Tracer, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(SecurityHeaders(cfg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Post("/auth/login", HandleLogin(cfg))

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.AuthSecret))

			r.Route("/targets", func(r chi.Router) {
				r.Get("/", HandleListTargets(reg))
				r.Post("/", HandleCreateTarget(reg))
				r.Get("/{id}", HandleGetTarget(reg))
				r.Patch("/{id}", HandleUpdateTarget(reg))
				r.Delete("/{id}", HandleDeleteTarget(reg))
				r.Post("/{id}/pause", HandlePauseTarget(reg))
				r.Post("/{id}/resume", HandleResumeTarget(reg))
				r.Get("/{id}/events", HandleListEvents(reg))
				r.Get("/{id}/insights", HandleGetInsights(engine))
				r.Get("/{id}/logs", HandleListSamples(reg, sampleReader))
				r.Get("/{id}/logs/export", HandleExportCSV(reg, sampleReader))
				r.Post("/{id}/traceroute", HandleTraceroute(reg, tracer))
			})
		})
	})

	return r
}
