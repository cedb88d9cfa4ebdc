package models

import "time"

// Profile профиль пользователя. TotalCredits кэш остатка активной подписки.
type Profile struct {
	ID           string    `json:"id"`
	Name         *string   `json:"name,omitempty"`
	TotalCredits int       `json:"total_credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
