package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"photostudio/internal/models"
)

// StatusUpdate is the payload the external service posts to the
// notification ingress when a long-running job finishes.
type StatusUpdate struct {
	Type       string   `json:"type"`
	ModelID    int64    `json:"model_id,omitempty"`
	PromptID   int64    `json:"prompt_id,omitempty"`
	Status     string   `json:"status"`
	TelegramID int64    `json:"telegram_id"`
	Error      string   `json:"error,omitempty"`
	Images     []string `json:"images,omitempty"`
}

// OnModelStatus relays a training completion or failure straight to the
// user, regardless of where they currently are in a conversation. The
// external service may deliver the same update more than once; each
// delivery produces a notification.
func (b *Bot) OnModelStatus(ctx context.Context, modelID int64, status string, telegramID int64, errMsg string) {
	chatID := b.notifyChatID(telegramID)

	if status != models.StatusCompleted {
		if err := b.db.UpdateModel(ctx, modelID, models.StatusFailed); err != nil {
			b.logger.Error("Failed to mark model failed",
				zap.Int64("model_id", modelID), zap.Error(err))
		}
		if errMsg == "" {
			errMsg = "unknown error"
		}
		b.sendText(chatID, fmt.Sprintf("😔 Training failed: %s\n\nUse /train to try again.", errMsg))
		return
	}

	if err := b.db.UpdateModel(ctx, modelID, models.StatusCompleted); err != nil {
		b.logger.Error("Failed to mark model completed",
			zap.Int64("model_id", modelID), zap.Error(err))
	}

	// The cached model listing is now stale; the next /generate re-fetches
	b.sessions.ClearData(telegramID, keyModelsCache)

	b.logger.Info("Model training completed",
		zap.Int64("model_id", modelID),
		zap.Int64("user_id", telegramID),
	)
	b.sendText(chatID, "🎉 Your model is trained and ready! Use /generate to create images with it.")
}

// OnPromptStatus relays a generation result: a summary message followed by
// one message per image. A completed update with no images is reported to
// the user as an explicit notice rather than dropped.
func (b *Bot) OnPromptStatus(ctx context.Context, promptID int64, status string, telegramID int64, images []string, errMsg string) {
	chatID := b.notifyChatID(telegramID)

	if status != models.StatusCompleted {
		if err := b.db.UpdatePrompt(ctx, promptID, models.StatusFailed); err != nil {
			b.logger.Error("Failed to mark prompt failed",
				zap.Int64("prompt_id", promptID), zap.Error(err))
		}
		if errMsg == "" {
			errMsg = "unknown error"
		}
		b.sendText(chatID, fmt.Sprintf("😔 Generation failed: %s\n\nUse /generate to try again.", errMsg))
		return
	}

	if err := b.db.UpdatePrompt(ctx, promptID, models.StatusCompleted); err != nil {
		b.logger.Error("Failed to mark prompt completed",
			zap.Int64("prompt_id", promptID), zap.Error(err))
	}

	if len(images) == 0 {
		b.logger.Warn("Prompt completed with no images",
			zap.Int64("prompt_id", promptID),
			zap.Int64("user_id", telegramID),
		)
		b.sendText(chatID, "🤔 Generation finished, but the images were not found. Please try /generate again.")
		return
	}

	b.logger.Info("Prompt generation completed",
		zap.Int64("prompt_id", promptID),
		zap.Int64("user_id", telegramID),
		zap.Int("image_count", len(images)),
	)
	b.sendText(chatID, fmt.Sprintf("✨ Your images are ready! Sending %d results…", len(images)))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Generate more", "gen:again"),
		),
	)
	for _, image := range images {
		b.sendPhoto(chatID, image, "", &keyboard)
	}
}

// notifyChatID resolves where to message the user. Scratch usually holds
// the chat id from earlier interaction; for private chats the user id
// doubles as the chat id, which covers users whose session has expired.
func (b *Bot) notifyChatID(telegramID int64) int64 {
	if chatID, ok := b.sessions.GetData(telegramID, keyChatID).(int64); ok && chatID != 0 {
		return chatID
	}
	return telegramID
}
