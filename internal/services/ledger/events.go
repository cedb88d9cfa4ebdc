package ledger

import "time"

// SubscriptionCreated событие о новой подписке (первой или после смены тарифа).
type SubscriptionCreated struct {
	UserID           string    `json:"user_id"`
	SubscriptionID   string    `json:"subscription_id"`
	PlanID           string    `json:"plan_id"`
	PlanName         string    `json:"plan_name"`
	CreditsAdded     int       `json:"credits_added"`
	CarriedOver      int       `json:"carried_over"`
	CreditsRemaining int       `json:"credits_remaining"`
	EndDate          time.Time `json:"end_date"`
	PaymentID        string    `json:"payment_id,omitempty"`
}

// CreditsDebited событие о списании кредитов.
type CreditsDebited struct {
	UserID           string `json:"user_id"`
	SubscriptionID   string `json:"subscription_id"`
	Amount           int    `json:"amount"`
	CreditsRemaining int    `json:"credits_remaining"`
	Description      string `json:"description"`
}

// CreditsGranted событие о начислении кредитов вне подписки.
type CreditsGranted struct {
	UserID      string `json:"user_id"`
	Amount      int    `json:"amount"`
	Description string `json:"description"`
	PaymentID   string `json:"payment_id,omitempty"`
}
