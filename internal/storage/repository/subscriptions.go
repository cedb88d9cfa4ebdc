package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/video-credits/internal/models"
)

const subscriptionColumns = `id, user_id, plan_id, start_date, end_date, credits_remaining, status, created_at, updated_at`

func scanSubscription(row scanner) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	var status string
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.StartDate, &sub.EndDate,
		&sub.CreditsRemaining, &status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatus(status)
	return &sub, nil
}

// GetActiveSubscription возвращает активную подписку пользователя с самой поздней датой окончания.
func (s *Storage) GetActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error) {
	const op = "storage.GetActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY end_date DESC
		LIMIT 1`
	sub, err := scanSubscription(s.q(ctx).QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return sub, nil
}

// CancelActiveSubscriptions переводит все активные подписки пользователя в cancelled.
func (s *Storage) CancelActiveSubscriptions(ctx context.Context, userID string) (int64, error) {
	const op = "storage.CancelActiveSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_subscriptions
		SET status = 'cancelled', updated_at = NOW()
		WHERE user_id = $1 AND status = 'active'`
	tag, err := s.q(ctx).Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

// CreateSubscription сохраняет новую подписку.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.UserSubscription) (*models.UserSubscription, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_subscriptions (user_id, plan_id, start_date, end_date, credits_remaining, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + subscriptionColumns
	created, err := scanSubscription(s.q(ctx).QueryRow(ctx, query,
		sub.UserID, sub.PlanID, sub.StartDate, sub.EndDate, sub.CreditsRemaining, string(sub.Status)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// DebitCredits списывает amount кредитов, только если остаток все еще равен expected.
// Возвращает false, если подписку успели изменить. Отрицательный amount возвращает кредиты.
func (s *Storage) DebitCredits(ctx context.Context, subscriptionID string, expected, amount int) (bool, error) {
	const op = "storage.DebitCredits"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE user_subscriptions
		SET credits_remaining = credits_remaining - $3, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND credits_remaining = $2 AND credits_remaining >= $3`
	tag, err := s.q(ctx).Exec(ctx, query, subscriptionID, expected, amount)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpiringSubscriptions возвращает активные подписки, заканчивающиеся в интервале [from, to).
func (s *Storage) ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.ExpiringSubscription, error) {
	const op = "storage.ListExpiringSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT us.id, us.user_id, sp.name, us.end_date, us.credits_remaining
		FROM user_subscriptions us
		JOIN subscription_plans sp ON sp.id = us.plan_id
		WHERE us.status = 'active' AND us.end_date >= $1 AND us.end_date < $2
		ORDER BY us.end_date ASC`
	rows, err := s.q(ctx).Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.ExpiringSubscription
	for rows.Next() {
		var e models.ExpiringSubscription
		if err := rows.Scan(&e.SubscriptionID, &e.UserID, &e.PlanName, &e.EndDate, &e.CreditsRemaining); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
