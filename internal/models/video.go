package models

import "time"

// Video готовое видео пользователя.
type Video struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	VideoURL           string    `json:"video_url"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Duration           int       `json:"duration"`
	Status             string    `json:"status"`
	FontName           string    `json:"font_name,omitempty"`
	BaseFontColor      string    `json:"base_font_color,omitempty"`
	HighlightWordColor string    `json:"highlight_word_color,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// VideoStatusCompleted статус сохраненного готового видео.
const VideoStatusCompleted = "completed"

// StoreVideoRequest данные готового видео из JSON-запроса.
type StoreVideoRequest struct {
	VideoURL           string `json:"video_url" validate:"required,url"`
	Title              string `json:"title" validate:"required,max=200"`
	Description        string `json:"description" validate:"max=2000"`
	Duration           int    `json:"duration" validate:"gte=0"`
	FontName           string `json:"font_name"`
	BaseFontColor      string `json:"base_font_color"`
	HighlightWordColor string `json:"highlight_word_color"`
}
