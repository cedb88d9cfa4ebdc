// Package ledger реализует леджер кредитов: каталог тарифов, подписку пользователя
// с остатком кредитов, журнал операций и кэш остатка в профиле.
//
// У пользователя не более одной активной подписки. Создание и смена подписки
// выполняются в одной транзакции под блокировкой пользователя, списание кредитов
// выполняется условной записью с повтором при конфликте.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/storage"
)

const plansCacheKey = "plans:all"

// UpgradePolicy поведение при покупке тарифа пользователем с активной подпиской.
type UpgradePolicy string

const (
	// PolicyCarryOver переносит остаток кредитов в новую подписку.
	PolicyCarryOver UpgradePolicy = "carryover"
	// PolicyReject отклоняет покупку, пока текущая подписка не истекла.
	PolicyReject UpgradePolicy = "reject"
)

// Repository хранилище леджера.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockUser(ctx context.Context, userID string) error

	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error)

	GetActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error)
	CancelActiveSubscriptions(ctx context.Context, userID string) (int64, error)
	CreateSubscription(ctx context.Context, sub models.UserSubscription) (*models.UserSubscription, error)
	DebitCredits(ctx context.Context, subscriptionID string, expected, amount int) (bool, error)

	AppendTransaction(ctx context.Context, t models.CreditTransaction) (*models.CreditTransaction, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.CreditTransaction, error)

	UpsertProfileCredits(ctx context.Context, userID string, credits int) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// Cache кэш каталога тарифов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Publisher публикует события леджера.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Options настройки леджера. Cache и Publisher необязательны.
type Options struct {
	UpgradePolicy   UpgradePolicy
	DebitMaxRetries int
	PlansTTL        time.Duration
	Cache           Cache
	Publisher       Publisher
	Now             func() time.Time
}

// Service леджер кредитов.
type Service struct {
	repo      Repository
	log       *slog.Logger
	cache     Cache
	publisher Publisher
	policy    UpgradePolicy
	retries   int
	plansTTL  time.Duration
	now       func() time.Time
}

// New создает леджер.
func New(repo Repository, log *slog.Logger, opts Options) *Service {
	s := &Service{
		repo:      repo,
		log:       log,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		policy:    opts.UpgradePolicy,
		retries:   opts.DebitMaxRetries,
		plansTTL:  opts.PlansTTL,
		now:       opts.Now,
	}
	if s.policy == "" {
		s.policy = PolicyCarryOver
	}
	if s.retries < 0 {
		s.retries = 0
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Policy возвращает политику смены тарифа.
func (s *Service) Policy() UpgradePolicy {
	return s.policy
}

// ListPlans возвращает каталог тарифов по возрастанию цены.
// Каталог читается через кэш; ошибки кэша только логируются.
func (s *Service) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	const op = "ledger.ListPlans"
	log := s.log.With(slog.String("op", op))

	if s.cache != nil {
		var cached []models.SubscriptionPlan
		found, err := s.cache.Get(ctx, plansCacheKey, &cached)
		if err != nil {
			log.Warn("failed to read plans from cache", sl.Err(err))
		} else if found {
			return cached, nil
		}
	}

	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	if s.cache != nil && s.plansTTL > 0 {
		if err := s.cache.Set(ctx, plansCacheKey, plans, s.plansTTL); err != nil {
			log.Warn("failed to cache plans", sl.Err(err))
		}
	}
	return plans, nil
}

// GetPlan возвращает тариф или ErrPlanNotFound.
func (s *Service) GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	const op = "ledger.GetPlan"
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrPlanNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return plan, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.log.Warn("failed to publish ledger event",
			slog.String("routing_key", routingKey),
			sl.Err(err),
		)
	}
}
