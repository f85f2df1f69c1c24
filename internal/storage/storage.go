package storage

import (
	"context"

	"photostudio/internal/models"
)

// Storage defines the interface for the persistent user/model/prompt store.
//
// Lookup operations return (nil, nil) when the record does not exist; absence
// is not an error. Callers treat a nil record as "not found".
type Storage interface {
	// User operations
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) error
	UpdateUser(ctx context.Context, user models.User) error

	// Model operations
	GetUserModels(ctx context.Context, telegramID int64) ([]models.Model, error)
	CreateModel(ctx context.Context, model models.Model) (int64, error)
	UpdateModel(ctx context.Context, modelID int64, status string) error
	GetModelDetails(ctx context.Context, modelID int64) (*models.Model, error)

	// Prompt operations
	CreatePrompt(ctx context.Context, prompt models.Prompt) (int64, error)
	UpdatePrompt(ctx context.Context, promptID int64, status string) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
