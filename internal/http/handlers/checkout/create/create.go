// Package create реализует HTTP-обработчик создания сессии оплаты тарифа.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/video-credits/internal/http/middlewarectx"
	"github.com/magabrotheeeer/video-credits/internal/http/response"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/paymentprovider"
)

// Request тело запроса на оплату тарифа.
type Request struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// Handler создает сессии Stripe Checkout.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс создания сессии оплаты.
type Service interface {
	CreateCheckout(ctx context.Context, userID, planID string) (*paymentprovider.CheckoutSession, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оплатить тариф
// @Description Создает сессию Stripe Checkout и возвращает URL страницы оплаты
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body Request true "Тариф"
// @Success 200 {object} response.Response "Сессия оплаты"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тариф не найден"
// @Failure 409 {object} response.ErrorResponse "Подписка уже оформлена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка платежного провайдера"
// @Router /checkout [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.create"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	session, err := h.service.CreateCheckout(r.Context(), userID, req.PlanID)
	if err != nil {
		log.Error("failed to create checkout session", sl.UserID(userID), sl.Err(err))
		status, msg := response.StatusFor(err)
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"session_id": session.ID,
		"url":        session.URL,
	}))
}
