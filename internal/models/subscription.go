package models

import "time"

// SubscriptionStatus статус подписки пользователя.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// UserSubscription подписка пользователя и остаток кредитов по ней.
// У пользователя не более одной подписки в статусе active.
type UserSubscription struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	PlanID           string             `json:"plan_id"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	CreditsRemaining int                `json:"credits_remaining"`
	Status           SubscriptionStatus `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// IsExpired сообщает, закончился ли срок подписки к моменту now.
// Статус в хранилище при этом не меняется.
func (s *UserSubscription) IsExpired(now time.Time) bool {
	return !s.EndDate.After(now)
}

// ExpiringSubscription подписка с данными для уведомления об окончании.
type ExpiringSubscription struct {
	SubscriptionID   string    `json:"subscription_id"`
	UserID           string    `json:"user_id"`
	PlanName         string    `json:"plan_name"`
	EndDate          time.Time `json:"end_date"`
	CreditsRemaining int       `json:"credits_remaining"`
}
