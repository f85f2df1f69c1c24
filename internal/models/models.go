package models

import "time"

// Statuses reported by the external training/generation service.
const (
	StatusPending   = "pending"
	StatusTraining  = "training"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// User represents a registered Telegram user
type User struct {
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	Credits    int       `db:"credits"`
	CreatedAt  time.Time `db:"created_at"`
}

// Model represents a trained (or in-training) photo model
type Model struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Name       string    `db:"name"`
	Type       string    `db:"type"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

// Prompt represents a generation request issued against a model
type Prompt struct {
	ID         int64     `db:"id"`
	ModelID    int64     `db:"model_id"`
	TelegramID int64     `db:"telegram_id"`
	Text       string    `db:"text"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

// ModelSummary is the short form returned by the models query webhook
type ModelSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}
