package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/linemk/order-billing/internal/config"
	"github.com/linemk/order-billing/internal/events"
)

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *sql.DB
	Publisher events.Publisher
}

// DSN собирает строку подключения к Postgres
func DSN(db config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
	)
}

// NewApp создаёт новый экземпляр App: подключение к БД и паблишер событий
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	if cfg.Database.Password == "" {
		return nil, errors.New("DB_PASSWORD environment variable is not set")
	}

	db, err := sql.Open("postgres", DSN(cfg.Database))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("order events enabled", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("topic", cfg.Kafka.Topic))
	} else {
		log.Info("kafka brokers not configured, order events disabled")
	}

	return &App{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		Publisher: publisher,
	}, nil
}

// Close освобождает ресурсы приложения
func (a *App) Close() error {
	pubErr := a.Publisher.Close()
	dbErr := a.DB.Close()
	if pubErr != nil {
		return errors.Wrap(pubErr, "failed to close publisher")
	}
	if dbErr != nil {
		return errors.Wrap(dbErr, "failed to close database")
	}
	return nil
}
