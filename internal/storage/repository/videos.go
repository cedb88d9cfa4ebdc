package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/video-credits/internal/models"
)

// CreateVideo сохраняет готовое видео пользователя.
func (s *Storage) CreateVideo(ctx context.Context, v models.Video) (*models.Video, error) {
	const op = "storage.CreateVideo"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO videos (user_id, video_url, title, description, duration, status,
			font_name, base_font_color, highlight_word_color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	err := s.q(ctx).QueryRow(ctx, query,
		v.UserID, v.VideoURL, v.Title, v.Description, v.Duration, v.Status,
		v.FontName, v.BaseFontColor, v.HighlightWordColor).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return &v, nil
}
