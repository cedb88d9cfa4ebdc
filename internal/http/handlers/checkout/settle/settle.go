// Package settle реализует HTTP-обработчик урегулирования оплаченной сессии.
//
// Обработчик вызывается со страницы успешной оплаты с параметром session_id.
// Повторный вызов безопасен: кредиты начисляются ровно один раз.
package settle

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/video-credits/internal/http/response"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/services/settlement"
)

// Handler урегулирует сессии оплаты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс урегулирования.
type Service interface {
	Settle(ctx context.Context, sessionID string) (settlement.Result, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Урегулировать оплату
// @Description Проверяет сессию Stripe Checkout и начисляет кредиты ровно один раз
// @Tags Checkout
// @Produce json
// @Param session_id query string true "Идентификатор сессии Stripe"
// @Success 200 {object} response.Response "Итог урегулирования (settled или already_settled)"
// @Failure 402 {object} response.ErrorResponse "Оплата не завершена"
// @Failure 422 {object} response.ErrorResponse "Некорректная сессия"
// @Failure 500 {object} response.ErrorResponse "Ошибка платежного провайдера"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /checkout/settle [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.settle"

	sessionID := r.URL.Query().Get("session_id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("session_id", sessionID),
	)

	if sessionID == "" {
		log.Error("session id is missing")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("session_id is required"))
		return
	}

	result, err := h.service.Settle(r.Context(), sessionID)
	if err != nil {
		log.Error("failed to settle checkout session", slog.String("state", string(result.State)), sl.Err(err))
		status, msg := response.StatusFor(err)
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("checkout session processed", slog.String("state", string(result.State)))
	render.JSON(w, r, response.OKWithData(result))
}
