package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/video-credits/internal/models"
)

const planColumns = `id, name, COALESCE(description, ''), price, credits_per_month, duration_months,
	is_annual, COALESCE(stripe_price_id, ''), COALESCE(stripe_product_id, ''), created_at, updated_at`

func scanPlan(row scanner) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreditsPerMonth, &p.DurationMonths,
		&p.IsAnnual, &p.StripePriceID, &p.StripeProductID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans возвращает каталог тарифов по возрастанию цены.
func (s *Storage) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM subscription_plans ORDER BY price ASC, name ASC`
	rows, err := s.q(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	plans := make([]models.SubscriptionPlan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}

// GetPlan возвращает тариф по идентификатору или storage.ErrNotFound.
func (s *Storage) GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	p, err := scanPlan(s.q(ctx).QueryRow(ctx, query, planID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}
