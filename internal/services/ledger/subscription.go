package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/video-credits/internal/lib/month"
	"github.com/magabrotheeeer/video-credits/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/metrics"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/storage"
)

// GetActiveSubscription возвращает активную подписку пользователя или ErrNoActiveSubscription.
// Если активных записей несколько, берется запись с самой поздней датой окончания.
func (s *Service) GetActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error) {
	const op = "ledger.GetActiveSubscription"
	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNoActiveSubscription)
		}
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return sub, nil
}

// HasUnexpiredActiveSubscription сообщает, есть ли у пользователя активная подписка
// с датой окончания строго в будущем.
func (s *Service) HasUnexpiredActiveSubscription(ctx context.Context, userID string) (bool, error) {
	sub, err := s.GetActiveSubscription(ctx, userID)
	if errors.Is(err, ErrNoActiveSubscription) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !sub.IsExpired(s.now()), nil
}

// CreateOrUpgradeSubscription оформляет пользователю тариф planID.
// Остаток кредитов текущей подписки переносится в новую, текущая подписка отменяется.
// В журнал записываются только новые кредиты тарифа.
func (s *Service) CreateOrUpgradeSubscription(ctx context.Context, userID, planID string) (*models.UserSubscription, error) {
	const op = "ledger.CreateOrUpgradeSubscription"
	sub, err := s.grantPlan(ctx, userID, planID, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GrantPlan оформляет тариф по оплаченному платежу. Повторный вызов для того же
// платежа возвращает ErrAlreadyGranted и ничего не меняет.
func (s *Service) GrantPlan(ctx context.Context, userID, planID, paymentID string) (*models.UserSubscription, error) {
	const op = "ledger.GrantPlan"
	sub, err := s.grantPlan(ctx, userID, planID, &paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func (s *Service) grantPlan(ctx context.Context, userID, planID string, paymentID *string) (*models.UserSubscription, error) {
	log := s.log.With(
		slog.String("op", "ledger.grantPlan"),
		sl.UserID(userID),
		slog.String("plan_id", planID),
	)

	var (
		plan        *models.SubscriptionPlan
		created     *models.UserSubscription
		carriedOver int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockUser(ctx, userID); err != nil {
			return err
		}

		var err error
		plan, err = s.repo.GetPlan(ctx, planID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrPlanNotFound
		}
		if err != nil {
			return err
		}

		current, err := s.repo.GetActiveSubscription(ctx, userID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		now := s.now()
		carriedOver = 0
		if current != nil {
			if s.policy == PolicyReject && !current.IsExpired(now) {
				return ErrAlreadySubscribed
			}
			carriedOver = current.CreditsRemaining
		}

		if _, err := s.repo.CancelActiveSubscriptions(ctx, userID); err != nil {
			return err
		}

		created, err = s.repo.CreateSubscription(ctx, models.UserSubscription{
			UserID:           userID,
			PlanID:           plan.ID,
			StartDate:        now,
			EndDate:          month.AddMonths(now, plan.DurationMonths),
			CreditsRemaining: plan.CreditsPerMonth + carriedOver,
			Status:           models.StatusActive,
		})
		if err != nil {
			return err
		}

		_, err = s.repo.AppendTransaction(ctx, models.CreditTransaction{
			UserID:         userID,
			SubscriptionID: &created.ID,
			PaymentID:      paymentID,
			Amount:         plan.CreditsPerMonth,
			Type:           models.TransactionCredit,
			Description:    planDescription(plan, current != nil, carriedOver),
		})
		if errors.Is(err, storage.ErrAlreadyExists) {
			return ErrAlreadyGranted
		}
		if err != nil {
			return err
		}

		return s.repo.UpsertProfileCredits(ctx, userID, created.CreditsRemaining)
	})
	if err != nil {
		return nil, classify(err)
	}

	log.Info("subscription created",
		slog.String("subscription_id", created.ID),
		slog.Int("carried_over", carriedOver),
		slog.Int("credits_remaining", created.CreditsRemaining),
	)
	metrics.CreditsGranted.WithLabelValues("subscription").Add(float64(plan.CreditsPerMonth))

	event := SubscriptionCreated{
		UserID:           userID,
		SubscriptionID:   created.ID,
		PlanID:           plan.ID,
		PlanName:         plan.Name,
		CreditsAdded:     plan.CreditsPerMonth,
		CarriedOver:      carriedOver,
		CreditsRemaining: created.CreditsRemaining,
		EndDate:          created.EndDate,
	}
	if paymentID != nil {
		event.PaymentID = *paymentID
	}
	s.publish(ctx, rabbitmq.KeySubscriptionCreated, event)

	return created, nil
}

func planDescription(plan *models.SubscriptionPlan, upgrade bool, carriedOver int) string {
	if !upgrade {
		return fmt.Sprintf("Initial credits from %s subscription", plan.Name)
	}
	return fmt.Sprintf("Plan upgrade: %d credits carried over + %d new credits from %s",
		carriedOver, plan.CreditsPerMonth, plan.Name)
}
