package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/linemk/order-billing/internal/app/handlers"
	"github.com/linemk/order-billing/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/order-billing/internal/lib/logger/handlers/urllog"
	"github.com/linemk/order-billing/internal/service"
)

// Services — зависимости HTTP-слоя
type Services struct {
	Auth   service.AuthServiceInterface
	Orders service.OrderService
	Query  service.OrderQueryService
	DB     handlers.Pinger
}

// NewRouter собирает маршруты API
func NewRouter(log *slog.Logger, jwtSecret string, allowedOrigins []string, svc Services) http.Handler {
	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", handlers.HealthHandler(log, svc.DB))

	router.Route("/api", func(r chi.Router) {
		// эндпоинт для аутентификации
		r.Post("/auth", handlers.AuthHandler(log, svc.Auth))

		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.NewJWTMiddleware(jwtSecret))

			r.Post("/orders", handlers.PlaceOrderHandler(log, svc.Orders))
			r.Get("/orders", handlers.ListOrdersHandler(log, svc.Query))
			r.Get("/orders/{id}", handlers.GetOrderHandler(log, svc.Query))

			r.Get("/bills", handlers.ListBillsHandler(log, svc.Query))
			r.Get("/bills/by-order/{orderId}", handlers.GetBillByOrderHandler(log, svc.Query))
			r.Get("/bills/{id}", handlers.GetBillHandler(log, svc.Query))
		})
	})

	return router
}
