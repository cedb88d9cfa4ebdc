package models

import "time"

// PaymentRecord запись об урегулированном платеже. StripePaymentID уникален
// и служит ключом идемпотентности.
type PaymentRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Amount           int       `json:"amount"`
	StripePaymentID  string    `json:"stripe_payment_id"`
	CreditsPurchased int       `json:"credits_purchased"`
	PlanID           *string   `json:"plan_id,omitempty"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
