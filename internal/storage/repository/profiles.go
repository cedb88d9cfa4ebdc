package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/video-credits/internal/models"
)

// UpsertProfileCredits записывает кэш остатка кредитов, создавая профиль при необходимости.
func (s *Storage) UpsertProfileCredits(ctx context.Context, userID string, credits int) error {
	const op = "storage.UpsertProfileCredits"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO profiles (id, total_credits)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET total_credits = EXCLUDED.total_credits, updated_at = NOW()`
	if _, err := s.q(ctx).Exec(ctx, query, userID, credits); err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

// GetProfile возвращает профиль пользователя или storage.ErrNotFound.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var p models.Profile
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, name, total_credits, created_at, updated_at FROM profiles WHERE id = $1`, userID).
		Scan(&p.ID, &p.Name, &p.TotalCredits, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return &p, nil
}
