package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ricirt/meeting-notifier/internal/api/handler"
	apimw "github.com/ricirt/meeting-notifier/internal/api/middleware"
	"github.com/ricirt/meeting-notifier/internal/queue"
	"github.com/ricirt/meeting-notifier/internal/service"
)

// maxBodyBytes bounds request bodies; a full bulk request fits comfortably.
const maxBodyBytes = 1 << 20

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	serviceName string,
	svc *service.NotificationService,
	q queue.Queue,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(maxBodyBytes))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	nh := handler.NewNotificationHandler(svc, logger)
	bh := handler.NewBulkHandler(svc, logger)
	qh := handler.NewQueueHandler(q)
	hh := handler.NewHealthHandler(serviceName)

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		// Literal segments are registered before {userId} so chi never
		// treats "send" or "bulk" as a user id.
		r.Post("/notifications/send", nh.Send)
		r.Post("/notifications/bulk", bh.Send)
		r.Get("/notifications/{userId}", nh.ListForUser)
		r.Put("/notifications/{notificationId}/read", nh.MarkRead)

		r.Get("/queue/depths", qh.Depths)
	})

	return r
}
