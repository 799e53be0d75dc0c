package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomatolabs/bookstore-backend/api/controllers"
	ordercontrollers "github.com/tomatolabs/bookstore-backend/api/controllers/orders"
	webhookcontrollers "github.com/tomatolabs/bookstore-backend/api/controllers/webhooks"
	"github.com/tomatolabs/bookstore-backend/api/middleware"
	checkoutsvc "github.com/tomatolabs/bookstore-backend/internal/checkout"
	internalorders "github.com/tomatolabs/bookstore-backend/internal/orders"
	"github.com/tomatolabs/bookstore-backend/internal/payments"
	"github.com/tomatolabs/bookstore-backend/internal/stock"
	"github.com/tomatolabs/bookstore-backend/pkg/config"
	"github.com/tomatolabs/bookstore-backend/pkg/db"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
	"github.com/tomatolabs/bookstore-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	checkoutService checkoutsvc.Service,
	ordersService internalorders.Service,
	paymentsService payments.Service,
	stockAdmin stock.Admin,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	// Provider callbacks authenticate via signature, not bearer tokens.
	r.Route("/api/v1/webhooks/alipay", func(r chi.Router) {
		r.Post("/notify", webhookcontrollers.AlipayNotify(paymentsService, logg))
		r.Get("/return", webhookcontrollers.AlipayReturn(paymentsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(checkoutService, logg))
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Post("/{orderId}/pay", ordercontrollers.Pay(paymentsService, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Put("/products/{productId}/stockpile", controllers.AdminSetStock(stockAdmin, logg))
	})

	return r
}
