// Package balance реализует HTTP-обработчик для получения остатка кредитов.
package balance

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

// Handler возвращает кэшированный в профиле остаток кредитов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения остатка.
type Service interface {
	GetProfileCredits(ctx context.Context, userID string) (int, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Остаток кредитов
// @Description Возвращает остаток кредитов из профиля пользователя
// @Tags Credits
// @Produce json
// @Success 200 {object} response.Response "Остаток кредитов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /credits [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.balance"

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

	credits, err := h.service.GetProfileCredits(r.Context(), userID)
	if err != nil {
		log.Error("failed to read profile credits", sl.UserID(userID), sl.Err(err))
		status, msg := response.StatusFor(err)
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"total_credits": credits,
	}))
}
