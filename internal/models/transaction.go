package models

import "time"

// TransactionType направление движения кредитов.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// CreditTransaction неизменяемая запись журнала кредитов.
// Amount положителен для начислений и отрицателен для списаний.
type CreditTransaction struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	SubscriptionID *string         `json:"subscription_id,omitempty"`
	PaymentID      *string         `json:"payment_id,omitempty"`
	Amount         int             `json:"amount"`
	Type           TransactionType `json:"type"`
	Description    string          `json:"description"`
	CreatedAt      time.Time       `json:"created_at"`
}
