package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"photostudio/internal/models"
	"photostudio/internal/session"
)

// handleStart registers the user lazily and shows the welcome message
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	user, err := b.db.GetUser(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to look up user", zap.Int64("user_id", userID), zap.Error(err))
	}
	if user == nil {
		err := b.db.CreateUser(ctx, models.User{
			TelegramID: userID,
			Username:   message.From.UserName,
		})
		if err != nil {
			b.logger.Error("Failed to register user", zap.Int64("user_id", userID), zap.Error(err))
		} else {
			b.logger.Info("Registered new user",
				zap.Int64("user_id", userID),
				zap.String("username", message.From.UserName),
			)
		}
	}

	b.sendText(message.Chat.ID, "Welcome to the AI Photo Studio! 📸\n\n"+helpText)
}

// handleTrain starts the model training flow
func (b *Bot) handleTrain(message *tgbotapi.Message) {
	userID := message.From.ID

	b.sessions.SetState(userID, session.StateEnteringModelName)
	b.sendText(message.Chat.ID,
		fmt.Sprintf("Let's train a new model! Please enter a name for it (up to %d characters):", maxModelNameLen))
}

// handleGenerate starts the image generation flow by listing the user's
// trained models as buttons. The list comes from the external service and
// is cached in scratch until a training completion invalidates it.
func (b *Bot) handleGenerate(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	summaries := b.cachedModels(userID)
	if summaries == nil {
		fetched, err := b.ai.ListModels(ctx, userID)
		if err != nil {
			b.logger.Warn("Failed to fetch models", zap.Int64("user_id", userID), zap.Error(err))
			b.sendText(chatID, "Could not fetch your models right now. Please try again in a moment.")
			return
		}
		summaries = fetched
		b.cacheModels(userID, summaries)
	}

	var trained []models.ModelSummary
	for _, s := range summaries {
		if s.Status == models.StatusCompleted {
			trained = append(trained, s)
		}
	}

	if len(trained) == 0 {
		b.sendText(chatID, "You have no trained models yet. Use /train to create one.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range trained {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(m.Name, fmt.Sprintf("model:%d", m.ID)),
		))
	}

	b.sessions.SetState(userID, session.StateSelectingModel)
	b.sendTextWithMarkup(chatID, "🎨 Select a model to generate with:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// handleModels lists the user's models from the persistent store
func (b *Bot) handleModels(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	list, err := b.db.GetUserModels(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to list models", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(chatID, "Could not fetch your models right now. Please try again in a moment.")
		return
	}

	if len(list) == 0 {
		b.sendText(chatID, "You have no models yet. Use /train to create one.")
		return
	}

	var text strings.Builder
	text.WriteString("Your models:\n\n")
	for i, m := range list {
		text.WriteString(fmt.Sprintf("%d. %s (%s) — %s\n", i+1, m.Name, m.Type, m.Status))
	}
	b.sendText(chatID, text.String())
}

// handleCredits shows the user's remaining credit balance
func (b *Bot) handleCredits(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	credits, err := b.ai.Credits(ctx, userID)
	if err != nil {
		b.logger.Warn("Failed to fetch credits", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(chatID, "Could not fetch your balance right now. Please try again in a moment.")
		return
	}

	b.sendText(chatID, fmt.Sprintf("💰 You have %d credits left.", credits))
}

// handleCancel aborts the current flow and returns the user to idle
func (b *Bot) handleCancel(message *tgbotapi.Message) {
	userID := message.From.ID

	b.sessions.ResetState(userID)
	b.sendText(message.Chat.ID, "Cancelled. Use /train or /generate to start again.")
}

// cachedModels returns the scratch-cached model list, nil when absent
func (b *Bot) cachedModels(userID int64) []models.ModelSummary {
	raw, ok := b.sessions.GetData(userID, keyModelsCache).([]interface{})
	if !ok {
		return nil
	}

	out := make([]models.ModelSummary, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil
		}
		id, _ := entry["id"].(int64)
		name, _ := entry["name"].(string)
		status, _ := entry["status"].(string)
		out = append(out, models.ModelSummary{ID: id, Name: name, Status: status})
	}
	return out
}

func (b *Bot) cacheModels(userID int64, summaries []models.ModelSummary) {
	raw := make([]interface{}, 0, len(summaries))
	for _, s := range summaries {
		raw = append(raw, map[string]interface{}{
			"id":     s.ID,
			"name":   s.Name,
			"status": s.Status,
		})
	}
	b.sessions.SetData(userID, keyModelsCache, raw)
}
