package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"photostudio/internal/models"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu      sync.RWMutex
	users   map[int64]models.User
	models  map[int64]models.Model
	prompts map[int64]models.Prompt

	nextModelID  int64
	nextPromptID int64
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		users:        make(map[int64]models.User),
		models:       make(map[int64]models.Model),
		prompts:      make(map[int64]models.Prompt),
		nextModelID:  1,
		nextPromptID: 1,
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockDB) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[telegramID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *MockDB) CreateUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.TelegramID]; exists {
		return nil
	}
	user.CreatedAt = time.Now()
	m.users[user.TelegramID] = user
	return nil
}

func (m *MockDB) UpdateUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.TelegramID]
	if !ok {
		return nil
	}
	existing.Username = user.Username
	existing.Credits = user.Credits
	m.users[user.TelegramID] = existing
	return nil
}

func (m *MockDB) GetUserModels(ctx context.Context, telegramID int64) ([]models.Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Model
	for _, model := range m.models {
		if model.TelegramID == telegramID {
			out = append(out, model)
		}
	}

	// Newest first, matching the Postgres implementation
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (m *MockDB) CreateModel(ctx context.Context, model models.Model) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	model.ID = m.nextModelID
	m.nextModelID++
	model.CreatedAt = time.Now()
	m.models[model.ID] = model
	return model.ID, nil
}

func (m *MockDB) UpdateModel(ctx context.Context, modelID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	model, ok := m.models[modelID]
	if !ok {
		return nil
	}
	model.Status = status
	m.models[modelID] = model
	return nil
}

func (m *MockDB) GetModelDetails(ctx context.Context, modelID int64) (*models.Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	model, ok := m.models[modelID]
	if !ok {
		return nil, nil
	}
	return &model, nil
}

func (m *MockDB) CreatePrompt(ctx context.Context, prompt models.Prompt) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prompt.ID = m.nextPromptID
	m.nextPromptID++
	prompt.CreatedAt = time.Now()
	m.prompts[prompt.ID] = prompt
	return prompt.ID, nil
}

func (m *MockDB) UpdatePrompt(ctx context.Context, promptID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prompt, ok := m.prompts[promptID]
	if !ok {
		return nil
	}
	prompt.Status = status
	m.prompts[promptID] = prompt
	return nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
