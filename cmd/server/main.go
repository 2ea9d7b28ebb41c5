package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"

	"github.com/linemk/order-billing/internal/app"
	"github.com/linemk/order-billing/internal/config"
	"github.com/linemk/order-billing/internal/lib/identifier"
	"github.com/linemk/order-billing/internal/lib/logger"
	"github.com/linemk/order-billing/internal/service"
	"github.com/linemk/order-billing/internal/storage"
)

func main() {
	// загрузка конфигурации (.env подхватывается autoload до этого момента)
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(context.Background(), log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("failed to close app", slog.Any("error", err))
		}
	}()

	// репозитории
	userRepo := storage.NewUserRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	billRepo := storage.NewBillRepository(application.DB)

	authService := service.NewAuthService(log, userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	orderService := service.NewOrderService(log, application.DB, orderRepo, billRepo, identifier.New(), application.Publisher,
		service.OrderOptions{
			IDAttempts:      cfg.Orders.IDAttempts,
			MinDeliveryDays: cfg.Orders.MinDeliveryDays,
			MaxDeliveryDays: cfg.Orders.MaxDeliveryDays,
		})
	queryService := service.NewOrderQueryService(log, orderRepo, billRepo)

	router := app.NewRouter(log, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, app.Services{
		Auth:   authService,
		Orders: orderService,
		Query:  queryService,
		DB:     application.DB,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	if err := serve(log, srv, stop); err != nil {
		log.Error("server error", slog.Any("error", err))
		if cerr := application.Close(); cerr != nil {
			log.Error("failed to close app", slog.Any("error", cerr))
		}
		os.Exit(1)
	}
	log.Info("server gracefully stopped")
}

// serve запускает srv и ждет сигнала остановки. Если сервер не поднялся
// (например, порт занят), ошибка возвращается сразу, без ожидания сигнала.
func serve(log *slog.Logger, srv *http.Server, stop <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return errors.Wrap(err, "listen and serve")
	case stopSign := <-stop:
		log.Info("received shutdown signal", slog.String("signal", stopSign.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server shutdown failed")
	}
	return nil
}
