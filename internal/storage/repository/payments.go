package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/storage"
)

const paymentColumns = `id, user_id, amount, stripe_payment_id, credits_purchased, plan_id, COALESCE(description, ''), created_at`

func scanPayment(row scanner) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.StripePaymentID, &p.CreditsPurchased, &p.PlanID, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayment сохраняет урегулированный платеж.
// Если платеж с тем же stripe_payment_id уже есть, возвращает storage.ErrAlreadyExists.
func (s *Storage) CreatePayment(ctx context.Context, p models.PaymentRecord) (*models.PaymentRecord, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_history (user_id, amount, stripe_payment_id, credits_purchased, plan_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stripe_payment_id) DO NOTHING
		RETURNING ` + paymentColumns
	created, err := scanPayment(s.q(ctx).QueryRow(ctx, query,
		p.UserID, p.Amount, p.StripePaymentID, p.CreditsPurchased, p.PlanID, p.Description))
	if errors.Is(err, pgx.ErrNoRows) {
		// ON CONFLICT DO NOTHING не вернул строку
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetPaymentByExternalRef ищет платеж по идентификатору сессии платежного провайдера.
func (s *Storage) GetPaymentByExternalRef(ctx context.Context, ref string) (*models.PaymentRecord, error) {
	const op = "storage.GetPaymentByExternalRef"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payment_history WHERE stripe_payment_id = $1`
	p, err := scanPayment(s.q(ctx).QueryRow(ctx, query, ref))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return p, nil
}

// ListPayments возвращает платежи пользователя от новых к старым.
func (s *Storage) ListPayments(ctx context.Context, userID string) ([]models.PaymentRecord, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + `
		FROM payment_history
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return s.collectPayments(ctx, op, query, userID)
}

// ListUngrantedPayments возвращает платежи старше olderThan, по которым в журнале нет начисления.
func (s *Storage) ListUngrantedPayments(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentRecord, error) {
	const op = "storage.ListUngrantedPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + `
		FROM payment_history ph
		WHERE ph.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM credit_transactions ct WHERE ct.payment_id = ph.id)
		ORDER BY ph.created_at ASC
		LIMIT $2`
	return s.collectPayments(ctx, op, query, olderThan, limit)
}

func (s *Storage) collectPayments(ctx context.Context, op, query string, args ...any) ([]models.PaymentRecord, error) {
	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.PaymentRecord, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
