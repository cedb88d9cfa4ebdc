// Package transactions реализует HTTP-обработчик чтения журнала кредитов.
package transactions

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/video-credits/internal/http/middlewarectx"
	"github.com/magabrotheeeer/video-credits/internal/http/response"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Handler возвращает журнал операций пользователя от новых к старым.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения журнала.
type Service interface {
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.CreditTransaction, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Журнал кредитов
// @Description Возвращает операции с кредитами от новых к старым
// @Tags Credits
// @Produce json
// @Param limit query int false "Количество записей (по умолчанию 50, не более 500)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response "Операции"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /credits/transactions [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.transactions"

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

	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil || limit <= 0 || limit > maxLimit {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("limit must be between 1 and 500"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("offset must be a non-negative integer"))
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		log.Error("failed to list transactions", sl.UserID(userID), sl.Err(err))
		status, msg := response.StatusFor(err)
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count":   len(txs),
		"transactions": txs,
	}))
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
