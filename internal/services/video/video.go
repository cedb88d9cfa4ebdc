// Package video списывает кредиты за готовые видео и проксирует запросы к API генерации.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
	"github.com/magabrotheeeer/video-credits/internal/videogen"
)

// CreditsPerVideo стоимость одного видео в кредитах.
const CreditsPerVideo = 1

const (
	debitDescription  = "Video generation"
	refundDescription = "Video generation refund"
)

// Ledger списание и возврат кредитов.
type Ledger interface {
	UseCredits(ctx context.Context, userID string, amount int, description string) (int, error)
	RefundCredits(ctx context.Context, userID string, amount int, description string) (int, error)
}

// Repository хранилище видео.
type Repository interface {
	CreateVideo(ctx context.Context, v models.Video) (*models.Video, error)
}

// Generator API генерации видео.
type Generator interface {
	GenerateNarration(ctx context.Context, req videogen.NarrationRequest) (json.RawMessage, error)
	GenerateVideo(ctx context.Context, req videogen.GenerateRequest) (string, error)
	JobStatus(ctx context.Context, kind videogen.JobKind, jobID string) (*videogen.JobStatus, error)
}

// Service сервис видео.
type Service struct {
	ledger    Ledger
	repo      Repository
	generator Generator
	log       *slog.Logger
}

// New создает сервис видео. generator может быть nil, если API генерации не настроен.
func New(l Ledger, repo Repository, generator Generator, log *slog.Logger) *Service {
	return &Service{
		ledger:    l,
		repo:      repo,
		generator: generator,
		log:       log,
	}
}

// StoreVideo списывает кредит за видео и сохраняет его. Если кредит списать
// не удалось, видео не сохраняется. Если не удалось сохранить видео, кредит возвращается.
func (s *Service) StoreVideo(ctx context.Context, userID string, req models.StoreVideoRequest) (*models.Video, error) {
	const op = "video.StoreVideo"
	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	remaining, err := s.ledger.UseCredits(ctx, userID, CreditsPerVideo, debitDescription)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v, err := s.repo.CreateVideo(ctx, models.Video{
		UserID:             userID,
		VideoURL:           req.VideoURL,
		Title:              req.Title,
		Description:        req.Description,
		Duration:           req.Duration,
		Status:             models.VideoStatusCompleted,
		FontName:           req.FontName,
		BaseFontColor:      req.BaseFontColor,
		HighlightWordColor: req.HighlightWordColor,
	})
	if err != nil {
		log.Error("video not stored after credit was spent", sl.Err(err))
		if _, refundErr := s.ledger.RefundCredits(ctx, userID, CreditsPerVideo, refundDescription); refundErr != nil {
			log.Error("failed to refund video credit", sl.Err(refundErr))
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ledger.ErrBackendUnavailable, err)
	}

	log.Info("video stored", slog.String("video_id", v.ID), slog.Int("credits_remaining", remaining))
	return v, nil
}

// GenerateNarration запрашивает текст озвучки для пользователя.
func (s *Service) GenerateNarration(ctx context.Context, userID string, req videogen.NarrationRequest) (json.RawMessage, error) {
	const op = "video.GenerateNarration"
	if s.generator == nil {
		return nil, fmt.Errorf("%s: %w", op, videogen.ErrUnavailable)
	}
	req.UserID = userID
	out, err := s.generator.GenerateNarration(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// GenerateVideo запускает генерацию видео и возвращает идентификатор задачи.
func (s *Service) GenerateVideo(ctx context.Context, userID string, req videogen.GenerateRequest) (string, error) {
	const op = "video.GenerateVideo"
	if s.generator == nil {
		return "", fmt.Errorf("%s: %w", op, videogen.ErrUnavailable)
	}
	req.UserID = userID
	jobID, err := s.generator.GenerateVideo(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("video generation started", slog.String("op", op), sl.UserID(userID), slog.String("job_id", jobID))
	return jobID, nil
}

// JobStatus возвращает состояние задачи генерации.
func (s *Service) JobStatus(ctx context.Context, kind videogen.JobKind, jobID string) (*videogen.JobStatus, error) {
	const op = "video.JobStatus"
	if s.generator == nil {
		return nil, fmt.Errorf("%s: %w", op, videogen.ErrUnavailable)
	}
	status, err := s.generator.JobStatus(ctx, kind, jobID)
	if err != nil {
		return status, fmt.Errorf("%s: %w", op, err)
	}
	return status, nil
}
