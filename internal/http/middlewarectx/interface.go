package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/video-credits/internal/lib/jwt"
)

// TokenParser проверяет JWT провайдера идентификации.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.Claims, error)
}

// SubscriptionChecker проверяет наличие у пользователя действующей подписки.
type SubscriptionChecker interface {
	HasUnexpiredActiveSubscription(ctx context.Context, userID string) (bool, error)
}
