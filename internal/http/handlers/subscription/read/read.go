// Package read реализует HTTP-обработчик для получения активной подписки пользователя.
//
// Помимо самой подписки возвращает тариф и число оставшихся месяцев.
package read

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/video-credits/internal/http/middlewarectx"
	"github.com/magabrotheeeer/video-credits/internal/http/response"
	"github.com/magabrotheeeer/video-credits/internal/lib/month"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/models"
)

// Handler обрабатывает запросы на получение активной подписки.
type Handler struct {
	log     *slog.Logger
	service Service
	now     func() time.Time
}

// Service описывает интерфейс бизнес-логики чтения подписки.
type Service interface {
	GetActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error)
	GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		now:     time.Now,
	}
}

// ServeHTTP godoc
// @Summary Активная подписка
// @Description Возвращает активную подписку пользователя, ее тариф и число оставшихся месяцев
// @Tags Subscription
// @Produce json
// @Success 200 {object} response.Response "Активная подписка"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /subscription [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"

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

	sub, err := h.service.GetActiveSubscription(r.Context(), userID)
	if err != nil {
		log.Error("failed to read subscription", sl.UserID(userID), sl.Err(err))
		status, msg := response.StatusFor(err)
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	data := map[string]any{
		"subscription": sub,
		"expired":      sub.IsExpired(h.now()),
	}
	plan, err := h.service.GetPlan(r.Context(), sub.PlanID)
	if err != nil {
		log.Warn("failed to read subscription plan", slog.String("plan_id", sub.PlanID), sl.Err(err))
	} else {
		data["plan"] = plan
		data["months_left"] = month.CountMonths(sub.StartDate, plan.DurationMonths, h.now())
	}

	render.JSON(w, r, response.OKWithData(data))
}
