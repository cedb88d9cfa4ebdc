// Package bootstrap собирает зависимости леджера из конфига: хранилище,
// кэш, брокер событий, платежный провайдер и сервисы поверх них.
// Используется HTTP API, фоновым воркером и утилитой оператора.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/video-credits/internal/cache"
	"github.com/magabrotheeeer/video-credits/internal/config"
	"github.com/magabrotheeeer/video-credits/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/migrations"
	"github.com/magabrotheeeer/video-credits/internal/paymentprovider"
	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
	"github.com/magabrotheeeer/video-credits/internal/services/settlement"
	"github.com/magabrotheeeer/video-credits/internal/storage/repository"
)

// Deps открытые ресурсы и сервисы леджера.
type Deps struct {
	Storage    *repository.Storage
	Cache      *cache.Cache
	Publisher  *rabbitmq.Publisher
	Provider   *paymentprovider.Client
	Ledger     *ledger.Service
	Settlement *settlement.Service

	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

// Open подключается к Postgres, применяет миграции и поднимает необязательные
// Redis и RabbitMQ. Пустой адрес Redis или URL RabbitMQ отключает соответствующий ресурс.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	const op = "bootstrap.Open"

	d := &Deps{logger: logger}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d.Storage = db

	if err = migrations.RunPool(db.Pool(), cfg.MigrationsPath); err != nil {
		d.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	opts := ledger.Options{
		UpgradePolicy:   ledger.UpgradePolicy(cfg.UpgradePolicy),
		DebitMaxRetries: cfg.DebitMaxRetries,
		PlansTTL:        cfg.PlansTTL,
	}

	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.Cache = c
		opts.Cache = c
	} else {
		logger.Warn("redis address is empty, plan catalog cache disabled")
	}

	if cfg.RabbitMQURL != "" {
		if err := d.openBroker(cfg.RabbitMQ); err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opts.Publisher = d.Publisher
	} else {
		logger.Warn("rabbitmq url is empty, ledger events disabled")
	}

	d.Ledger = ledger.New(db, logger, opts)
	d.Provider = paymentprovider.NewClient(cfg.StripeSecretKey, cfg.SuccessURL, cfg.CancelURL)
	d.Settlement = settlement.New(d.Provider, d.Ledger, db, logger, settlement.Options{
		GracePeriod: cfg.GracePeriod,
		BatchSize:   cfg.BatchSize,
	})

	return d, nil
}

func (d *Deps) openBroker(cfg config.RabbitMQ) error {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return err
	}
	d.conn = conn

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.LedgerExchange, rabbitmq.LedgerQueues())
	if err != nil {
		return err
	}
	d.ch = ch
	d.Publisher = rabbitmq.NewPublisher(ch, rabbitmq.LedgerExchange)
	return nil
}

// Close освобождает ресурсы в обратном порядке открытия.
func (d *Deps) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.logger.Error("failed to close channel", sl.Err(err))
		}
	} else if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if d.Storage != nil {
		d.Storage.Close()
	}
}
