// Package notifier публикует уведомления о скором окончании подписок.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/video-credits/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/metrics"
	"github.com/magabrotheeeer/video-credits/internal/models"
)

// SubscriptionRepository поиск подписок, истекающих в интервале.
type SubscriptionRepository interface {
	ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.ExpiringSubscription, error)
}

// Publisher публикует сообщения в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service рассылает уведомления об окончании подписок.
type Service struct {
	repo      SubscriptionRepository
	publisher Publisher
	log       *slog.Logger
	window    time.Duration
	now       func() time.Time
}

// New создает сервис уведомлений. window интервал от текущего момента,
// в который должна попасть дата окончания подписки.
func New(repo SubscriptionRepository, publisher Publisher, log *slog.Logger, window time.Duration) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
		window:    window,
		now:       time.Now,
	}
}

// NotifyExpiring публикует по одному сообщению на каждую активную подписку,
// которая заканчивается в ближайшие window. Возвращает число отправленных сообщений.
func (s *Service) NotifyExpiring(ctx context.Context) (int, error) {
	const op = "notifier.NotifyExpiring"
	log := s.log.With(slog.String("op", op))

	from := s.now()
	subs, err := s.repo.ListExpiringSubscriptions(ctx, from, from.Add(s.window))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, sub := range subs {
		if err := s.publisher.Publish(ctx, rabbitmq.KeySubscriptionExpiring, sub); err != nil {
			log.Error("failed to publish message", slog.String("subscription_id", sub.SubscriptionID), sl.Err(err))
			continue
		}
		sent++
	}
	metrics.ExpiryNotifications.Add(float64(sent))
	log.Info("expiry notifications published", slog.Int("found", len(subs)), slog.Int("sent", sent))
	return sent, nil
}
