package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/video-credits/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/metrics"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/storage"
)

// UseCredits списывает amount кредитов с активной подписки пользователя и
// возвращает новый остаток. Списание, запись в журнал и обновление профиля
// фиксируются одной транзакцией. Конкурентное изменение остатка приводит
// к повтору, после исчерпания попыток возвращается ErrBackendUnavailable.
func (s *Service) UseCredits(ctx context.Context, userID string, amount int, description string) (int, error) {
	const op = "ledger.UseCredits"
	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	if amount <= 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	var (
		sub       *models.UserSubscription
		remaining int
		err       error
	)
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context) error {
			// сериализуется с оформлением подписки того же пользователя
			if err := s.repo.LockUser(ctx, userID); err != nil {
				return err
			}
			var err error
			sub, err = s.repo.GetActiveSubscription(ctx, userID)
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNoActiveSubscription
			}
			if err != nil {
				return err
			}
			if amount > sub.CreditsRemaining {
				return ErrInsufficientCredits
			}

			applied, err := s.repo.DebitCredits(ctx, sub.ID, sub.CreditsRemaining, amount)
			if err != nil {
				return err
			}
			if !applied {
				return ErrConflict
			}
			remaining = sub.CreditsRemaining - amount

			_, err = s.repo.AppendTransaction(ctx, models.CreditTransaction{
				UserID:         userID,
				SubscriptionID: &sub.ID,
				Amount:         -amount,
				Type:           models.TransactionDebit,
				Description:    description,
			})
			if err != nil {
				return err
			}
			return s.repo.UpsertProfileCredits(ctx, userID, remaining)
		})
		if !errors.Is(err, ErrConflict) {
			break
		}
		metrics.DebitConflicts.Inc()
		log.Warn("credit debit conflict, retrying", slog.Int("attempt", attempt+1))
	}
	if errors.Is(err, ErrConflict) {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}

	log.Info("credits used", slog.Int("amount", amount), slog.Int("credits_remaining", remaining))
	metrics.CreditsDebited.Add(float64(amount))
	s.publish(ctx, rabbitmq.KeyCreditsDebited, CreditsDebited{
		UserID:           userID,
		SubscriptionID:   sub.ID,
		Amount:           amount,
		CreditsRemaining: remaining,
		Description:      description,
	})
	return remaining, nil
}

// RefundCredits возвращает amount кредитов на активную подписку и добавляет
// в журнал начисление. Без активной подписки возврат попадает только в журнал.
func (s *Service) RefundCredits(ctx context.Context, userID string, amount int, description string) (int, error) {
	const op = "ledger.RefundCredits"
	if amount <= 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	var remaining int
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockUser(ctx, userID); err != nil {
			return err
		}
		t := models.CreditTransaction{
			UserID:      userID,
			Amount:      amount,
			Type:        models.TransactionCredit,
			Description: description,
		}

		sub, err := s.repo.GetActiveSubscription(ctx, userID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			_, err = s.repo.AppendTransaction(ctx, t)
			return err
		case err != nil:
			return err
		}

		applied, err := s.repo.DebitCredits(ctx, sub.ID, sub.CreditsRemaining, -amount)
		if err != nil {
			return err
		}
		if !applied {
			return ErrConflict
		}
		remaining = sub.CreditsRemaining + amount
		t.SubscriptionID = &sub.ID
		if _, err := s.repo.AppendTransaction(ctx, t); err != nil {
			return err
		}
		return s.repo.UpsertProfileCredits(ctx, userID, remaining)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}

	s.log.Info("credits refunded",
		slog.String("op", op),
		sl.UserID(userID),
		slog.Int("amount", amount),
		slog.Int("credits_remaining", remaining),
	)
	metrics.CreditsGranted.WithLabelValues("refund").Add(float64(amount))
	s.publish(ctx, rabbitmq.KeyCreditsGranted, CreditsGranted{
		UserID:      userID,
		Amount:      amount,
		Description: description,
	})
	return remaining, nil
}

// GrantCredits начисляет кредиты без привязки к подписке (покупка пакета кредитов).
// Такие начисления попадают только в журнал: кэш профиля отражает остаток активной подписки.
// Повторный вызов для того же платежа возвращает ErrAlreadyGranted.
func (s *Service) GrantCredits(ctx context.Context, userID string, amount int, description, paymentID string) (*models.CreditTransaction, error) {
	const op = "ledger.GrantCredits"
	if amount <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	t := models.CreditTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        models.TransactionCredit,
		Description: description,
	}
	if paymentID != "" {
		t.PaymentID = &paymentID
	}

	created, err := s.repo.AppendTransaction(ctx, t)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyGranted)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	s.log.Info("credits granted",
		slog.String("op", op),
		sl.UserID(userID),
		slog.Int("amount", amount),
		slog.String("payment_id", paymentID),
	)
	metrics.CreditsGranted.WithLabelValues("purchase").Add(float64(amount))
	s.publish(ctx, rabbitmq.KeyCreditsGranted, CreditsGranted{
		UserID:      userID,
		Amount:      amount,
		Description: description,
		PaymentID:   paymentID,
	})
	return created, nil
}

// SyncProfileCredits записывает в профиль остаток активной подписки (0, если ее нет)
// и возвращает записанное значение. Повторный вызов дает тот же результат.
func (s *Service) SyncProfileCredits(ctx context.Context, userID string) (int, error) {
	const op = "ledger.SyncProfileCredits"

	var credits int
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockUser(ctx, userID); err != nil {
			return err
		}
		sub, err := s.repo.GetActiveSubscription(ctx, userID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			credits = 0
		case err != nil:
			return err
		default:
			credits = sub.CreditsRemaining
		}
		return s.repo.UpsertProfileCredits(ctx, userID, credits)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}

	s.log.Debug("profile credits synced", slog.String("op", op), sl.UserID(userID), slog.Int("total_credits", credits))
	return credits, nil
}

// GetProfileCredits возвращает кэшированный остаток из профиля, 0 если профиля нет.
func (s *Service) GetProfileCredits(ctx context.Context, userID string) (int, error) {
	const op = "ledger.GetProfileCredits"
	profile, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	return profile.TotalCredits, nil
}

// ListTransactions возвращает журнал пользователя от новых записей к старым.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.CreditTransaction, error) {
	const op = "ledger.ListTransactions"
	txs, err := s.repo.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return txs, nil
}
