// Package resync реализует HTTP-обработчик пересчета остатка кредитов в профиле.
package resync

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/video-credits/internal/http/middlewarectx"
	"github.com/magabrotheeeer/video-credits/internal/http/response"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
)

// Handler синхронизирует кэш профиля с активной подпиской.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс синхронизации.
type Service interface {
	SyncProfileCredits(ctx context.Context, userID string) (int, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Пересчитать остаток в профиле
// @Description Записывает в профиль остаток активной подписки (0, если ее нет)
// @Tags Credits
// @Produce json
// @Success 200 {object} response.Response "Записанный остаток"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /credits/sync [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.sync"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	credits, err := h.service.SyncProfileCredits(r.Context(), userID)
	if err != nil {
		log.Error("failed to sync profile credits", sl.UserID(userID), sl.Err(err))
		status, msg := response.StatusFor(err)
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("profile credits synced", sl.UserID(userID), slog.Int("total_credits", credits))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"total_credits": credits,
	}))
}
