package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/video-credits/internal/models"
)

const transactionColumns = `id, user_id, subscription_id, payment_id, amount, type, COALESCE(description, ''), created_at`

func scanTransaction(row scanner) (*models.CreditTransaction, error) {
	var t models.CreditTransaction
	var typ string
	err := row.Scan(&t.ID, &t.UserID, &t.SubscriptionID, &t.PaymentID, &t.Amount, &typ, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = models.TransactionType(typ)
	return &t, nil
}

// AppendTransaction добавляет запись в журнал кредитов. Записи журнала не изменяются и не удаляются.
// Повторная запись для того же платежа возвращает storage.ErrAlreadyExists.
func (s *Storage) AppendTransaction(ctx context.Context, t models.CreditTransaction) (*models.CreditTransaction, error) {
	const op = "storage.AppendTransaction"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO credit_transactions (user_id, subscription_id, payment_id, amount, type, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + transactionColumns
	created, err := scanTransaction(s.q(ctx).QueryRow(ctx, query,
		t.UserID, t.SubscriptionID, t.PaymentID, t.Amount, string(t.Type), t.Description))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return created, nil
}

// ListTransactions возвращает журнал пользователя от новых записей к старым.
// limit <= 0 означает без ограничения.
func (s *Storage) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.CreditTransaction, error) {
	const op = "storage.ListTransactions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + transactionColumns + `
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($2, 0) OFFSET $3`
	rows, err := s.q(ctx).Query(ctx, query, userID, max(limit, 0), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.CreditTransaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// HasPaymentGrant сообщает, есть ли в журнале начисление по платежу.
func (s *Storage) HasPaymentGrant(ctx context.Context, paymentID string) (bool, error) {
	const op = "storage.HasPaymentGrant"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM credit_transactions WHERE payment_id = $1)`, paymentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
