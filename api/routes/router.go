package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nubiru/chamana-sub000/api/controllers"
	"github.com/Nubiru/chamana-sub000/api/middleware"
	"github.com/Nubiru/chamana-sub000/internal/inventory"
	"github.com/Nubiru/chamana-sub000/internal/orders"
	"github.com/Nubiru/chamana-sub000/internal/reports"
	"github.com/Nubiru/chamana-sub000/pkg/config"
	"github.com/Nubiru/chamana-sub000/pkg/db"
	"github.com/Nubiru/chamana-sub000/pkg/logger"
	"github.com/Nubiru/chamana-sub000/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	inventoryRepo inventory.Repository,
	inventorySvc inventory.Service,
	ordersSvc orders.Service,
	reportsSvc reports.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var cache redis.Pinger
	var store redis.IdempotencyStore
	if redisClient != nil {
		cache = redisClient
		store = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cache, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersSvc, logg))
			r.Post("/process", controllers.ProcessOrder(ordersSvc, logg))
			r.Put("/{orderId}/complete", controllers.CompleteOrder(ordersSvc, logg))
			r.Put("/{orderId}/cancel", controllers.CancelOrder(ordersSvc, logg))
			r.Put("/{orderId}/items", controllers.UpdateOrderItems(ordersSvc, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersSvc, logg))
			r.Get("/{orderId}/history", controllers.OrderHistory(ordersSvc, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/{productId}/restock", controllers.RestockProduct(inventorySvc, logg))
			r.Get("/{productId}", controllers.ProductDetail(inventoryRepo, logg))
			r.Get("/{productId}/movements", controllers.ProductMovements(inventorySvc, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/commission", controllers.CommissionReport(reportsSvc, logg))
			r.Get("/low-stock", controllers.LowStockReport(reportsSvc, cfg, logg))
		})
	})

	return r
}
