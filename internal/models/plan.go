// Package models содержит доменные структуры леджера кредитов:
// тарифы, подписки, операции с кредитами, платежи, профили и видео.
package models

import "time"

// SubscriptionPlan запись каталога тарифов. Изменяется только администратором.
type SubscriptionPlan struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           float64   `json:"price"`
	CreditsPerMonth int       `json:"credits_per_month"`
	DurationMonths  int       `json:"duration_months"`
	IsAnnual        bool      `json:"is_annual"`
	StripePriceID   string    `json:"stripe_price_id,omitempty"`
	StripeProductID string    `json:"stripe_product_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
