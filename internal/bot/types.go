package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"photostudio/internal/config"
	"photostudio/internal/models"
	"photostudio/internal/session"
	"photostudio/internal/storage"
	"photostudio/internal/webhook"
)

// Scratch keys used across the conversation flows
const (
	keyModelName       = "model_name"
	keyModelType       = "model_type"
	keyModelID         = "model_id"
	keyPrompt          = "prompt"
	keyChatID          = "chat_id"
	keyPhotos          = "photos"
	keyModelsCache     = "models"
	keyStatusMessageID = "status_message_id"
	keyMediaGroupID    = "media_group_id"
)

// Input length limits enforced before any state transition
const (
	maxModelNameLen           = 30
	maxMediaGroupModelNameLen = 50
	maxPromptLen              = 500
)

// sessionTTL is how long an idle conversation survives before the sweep
// removes it.
const sessionTTL = 24 * time.Hour

// sender is the slice of the Telegram API the bot uses for outbound calls.
// *tgbotapi.BotAPI satisfies it; tests substitute a recording fake.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// aiClient is the outbound contract to the external training/generation
// service. *webhook.Client satisfies it.
type aiClient interface {
	StartTraining(ctx context.Context, req webhook.TrainingRequest) error
	StartGeneration(ctx context.Context, req webhook.GenerationRequest) (string, error)
	ListModels(ctx context.Context, telegramID int64) ([]models.ModelSummary, error)
	Credits(ctx context.Context, telegramID int64) (int, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api      *tgbotapi.BotAPI // nil in tests
	tg       sender           // outbound seam, equals api in production
	db       storage.Storage
	ai       aiClient
	sessions *session.Store
	groups   *mediaGroupAggregator
	cfg      *config.Config
	logger   *zap.Logger
}
