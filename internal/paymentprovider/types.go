package paymentprovider

import "errors"

// Статусы сессии оплаты, при которых платеж считается завершенным.
const (
	StatusComplete    = "complete"
	PaymentStatusPaid = "paid"
)

// Ключи метаданных сессии. Все значения передаются строками.
const (
	MetaUserID         = "userId"
	MetaCredits        = "credits"
	MetaPlanName       = "planName"
	MetaPlanID         = "planId"
	MetaOriginalAmount = "originalAmount"
)

// ErrSessionNotFound сессия оплаты не найдена у провайдера.
var ErrSessionNotFound = errors.New("paymentprovider: checkout session not found")

// CheckoutRequest параметры создания сессии оплаты.
type CheckoutRequest struct {
	PriceID  string
	UserID   string
	Metadata map[string]string
}

// CheckoutSession сессия оплаты в том виде, в котором она нужна для урегулирования.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url,omitempty"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Paid сообщает, что сессия завершена и оплачена.
func (s *CheckoutSession) Paid() bool {
	return s.Status == StatusComplete && s.PaymentStatus == PaymentStatusPaid
}
