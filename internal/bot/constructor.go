package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"photostudio/internal/config"
	"photostudio/internal/session"
	"photostudio/internal/storage"
)

// preservedKeys survive a state reset so that multi-step flows which
// straddle a reset (media-group naming) keep their entered values.
var preservedKeys = []string{keyModelName, keyModelType, keyChatID}

// NewBot creates a new Telegram bot
func NewBot(cfg *config.Config, db storage.Storage, ai aiClient, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	b := &Bot{
		api:      api,
		tg:       api,
		db:       db,
		ai:       ai,
		sessions: session.NewStore(sessionTTL, preservedKeys),
		cfg:      cfg,
		logger:   logger,
	}
	b.groups = newMediaGroupAggregator(b, mediaGroupDebounce, mediaGroupSettle)
	return b, nil
}

// Sessions returns the conversation state store
func (b *Bot) Sessions() *session.Store {
	return b.sessions
}
