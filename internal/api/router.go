package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linkspool/linkspool/internal/api/handler"
	apimw "github.com/linkspool/linkspool/internal/api/middleware"
	"github.com/linkspool/linkspool/internal/events"
	"github.com/linkspool/linkspool/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.SubmissionService,
	notifier *events.Notifier,
	db *sql.DB,
	eventBuffer int,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	bh := handler.NewBookmarkHandler(svc, logger)
	qh := handler.NewQueueHandler(svc, logger)
	eh := handler.NewEventsHandler(notifier, eventBuffer, logger)
	hh := handler.NewHealthHandler(db)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Inspection
		r.Post("/inspect", bh.Inspect)
		r.Get("/inspect", bh.CurrentInspection)

		// Submission
		r.Post("/bookmarks", bh.Submit)

		// Queue
		r.Get("/queue", qh.List)
		r.Post("/queue/retry", qh.RetryNow)
		r.Get("/queue/stats", qh.Stats)

		// Session and live events
		r.Get("/session", qh.Session)
		r.Get("/events", eh.Stream)
	})

	return r
}
