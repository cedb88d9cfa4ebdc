package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
	"github.com/magabrotheeeer/video-credits/internal/services/settlement"
	"github.com/magabrotheeeer/video-credits/internal/videogen"
)

var statusByError = []struct {
	err     error
	status  int
	message string
}{
	{ledger.ErrPlanNotFound, http.StatusNotFound, "plan not found"},
	{ledger.ErrNoActiveSubscription, http.StatusNotFound, "no active subscription found"},
	{ledger.ErrInsufficientCredits, http.StatusPaymentRequired, "insufficient credits"},
	{ledger.ErrAlreadySubscribed, http.StatusConflict, "user already has an active subscription"},
	{ledger.ErrAlreadyGranted, http.StatusConflict, "payment already granted"},
	{ledger.ErrInvalidAmount, http.StatusUnprocessableEntity, "amount must be a positive integer"},
	{settlement.ErrPaymentNotCompleted, http.StatusPaymentRequired, "payment not completed"},
	{settlement.ErrInvalidSettlement, http.StatusUnprocessableEntity, "invalid checkout session"},
	{videogen.ErrBadRequest, http.StatusUnprocessableEntity, "request rejected by video api"},
	{videogen.ErrJobFailed, http.StatusBadGateway, "video generation failed"},
	{videogen.ErrUnavailable, http.StatusServiceUnavailable, "video api unavailable"},
	{ledger.ErrBackendUnavailable, http.StatusServiceUnavailable, "service temporarily unavailable"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "service temporarily unavailable"},
}

// StatusFor возвращает HTTP-статус и сообщение для клиента по ошибке сервиса.
// Неизвестные ошибки дают 500 без подробностей.
func StatusFor(err error) (int, string) {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "internal error"
}
