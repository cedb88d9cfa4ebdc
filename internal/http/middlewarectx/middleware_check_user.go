package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/video-credits/internal/http/response"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
)

// SubscriptionRequired пропускает запрос только пользователям с действующей подпиской.
func SubscriptionRequired(log *slog.Logger, checker SubscriptionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			active, err := checker.HasUnexpiredActiveSubscription(r.Context(), userID)
			if err != nil {
				log.Error("failed to check subscription", sl.UserID(userID), sl.Err(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if !active {
				log.Info("no active subscription, access denied", sl.UserID(userID))
				w.WriteHeader(http.StatusPaymentRequired)
				render.JSON(w, r, response.Error("active subscription required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
