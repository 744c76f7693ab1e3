package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentloop/rentloop-backend/api/controllers"
	ordercontrollers "github.com/rentloop/rentloop-backend/api/controllers/orders"
	"github.com/rentloop/rentloop-backend/api/middleware"
	"github.com/rentloop/rentloop-backend/internal/negotiations"
	"github.com/rentloop/rentloop-backend/internal/notifications"
	"github.com/rentloop/rentloop-backend/internal/orders"
	"github.com/rentloop/rentloop-backend/pkg/config"
	"github.com/rentloop/rentloop-backend/pkg/db"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	ordersSvc orders.Service,
	negotiationsSvc negotiations.Service,
	notificationsSvc notifications.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
				r.Post("/accept", ordercontrollers.Accept(ordersSvc, logg))
				r.Post("/decline", ordercontrollers.Decline(ordersSvc, logg))
				r.Post("/cancel", ordercontrollers.Cancel(ordersSvc, logg))

				r.Post("/payment-session", ordercontrollers.CreatePaymentSession(ordersSvc, logg))
				r.Post("/pay/stripe", ordercontrollers.PayStripe(ordersSvc, logg))
				r.Post("/pay/cod", ordercontrollers.PayCOD(ordersSvc, logg))
				r.Post("/verify-cod", ordercontrollers.VerifyCOD(ordersSvc, logg))

				r.Post("/scan/delivery", ordercontrollers.ScanDelivery(ordersSvc, logg))
				r.Post("/scan/return", ordercontrollers.ScanReturn(ordersSvc, logg))

				r.Route("/negotiations", func(r chi.Router) {
					r.Post("/", controllers.NegotiationOffer(negotiationsSvc, logg))
					r.Get("/", controllers.NegotiationHistory(negotiationsSvc, logg))
					r.Post("/accept", controllers.NegotiationAccept(negotiationsSvc, logg))
					r.Post("/decline", controllers.NegotiationDecline(negotiationsSvc, logg))
					r.Get("/price", controllers.NegotiationCurrentPrice(negotiationsSvc, logg))
				})
			})
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsSvc, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsSvc, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsSvc, logg))
		})
	})

	return r
}
