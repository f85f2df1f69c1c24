package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"photostudio/internal/session"
)

const helpText = `I can train a photo model from your pictures and generate new images with it.

/train - Train a new model from your photos
/generate - Generate images with a trained model
/models - List your models
/credits - Show your credit balance
/cancel - Cancel the current operation
/help - Show this message`

// HandleUpdate processes a single Telegram update, whether it arrived via
// polling or via the webhook endpoint.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	}

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
	}
}

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	userID := message.From.ID
	chatID := message.Chat.ID

	// Recover from panics so one user's failure cannot take the loop down
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage",
				zap.Int64("user_id", userID),
				zap.Any("panic", r),
			)
			b.sendText(chatID, "An error occurred while processing your request. Please try again.")
			b.notifyAdmin(userID, r)
		}
	}()

	ctx := context.Background()
	b.sessions.SetData(userID, keyChatID, chatID)

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(ctx, message)
		case "train":
			b.handleTrain(message)
		case "generate":
			b.handleGenerate(ctx, message)
		case "models":
			b.handleModels(ctx, message)
		case "credits":
			b.handleCredits(ctx, message)
		case "cancel":
			b.handleCancel(message)
		case "help":
			b.sendText(chatID, helpText)
		default:
			b.sendText(chatID, "Unknown command. Use /help to see available commands.")
		}
		return
	}

	if len(message.Photo) > 0 {
		b.handlePhoto(message)
		return
	}

	if message.Text != "" {
		b.handleText(ctx, message)
		return
	}

	b.sendText(chatID, helpText)
}

// handleText routes free-form text according to the user's current state
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	switch b.sessions.GetState(userID) {
	case session.StateEnteringModelName:
		b.handleModelNameInput(message)
	case session.StateEnteringModelNameForMediaGroup:
		b.handleMediaGroupNameInput(message)
	case session.StateEnteringPrompt:
		b.handlePromptInput(message)
	default:
		b.sendText(message.Chat.ID, helpText)
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}
	userID := query.From.ID

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery",
				zap.Int64("user_id", userID),
				zap.String("data", query.Data),
				zap.Any("panic", r),
			)
			b.notifyAdmin(userID, r)
		}
	}()

	// Answer the callback query to remove the loading state
	if b.tg != nil {
		_, _ = b.tg.Request(tgbotapi.NewCallback(query.ID, ""))
	}

	if query.Message == nil {
		return
	}

	ctx := context.Background()
	chatID := query.Message.Chat.ID
	b.sessions.SetData(userID, keyChatID, chatID)
	data := query.Data

	switch {
	case strings.HasPrefix(data, "type:"):
		b.handleModelTypeCallback(query)
	case strings.HasPrefix(data, "mgtype:"):
		b.handleMediaGroupTypeCallback(query)
	case strings.HasPrefix(data, "model:"):
		b.handleModelSelectCallback(query)
	case data == "train:start":
		b.handleStartTrainingCallback(ctx, query)
	case data == "train:cancel":
		b.handleCancelCallback(query)
	case data == "gen:start":
		b.handleStartGenerationCallback(ctx, query)
	case data == "gen:edit":
		b.handleEditPromptCallback(query)
	case data == "gen:again":
		b.handleGenerateAgainCallback(query)
	case data == "gen:cancel":
		b.handleCancelCallback(query)
	case strings.HasPrefix(data, "mg:"):
		b.handleMediaGroupCallback(ctx, query)
	default:
		b.logger.Info("Unrecognized callback data",
			zap.Int64("user_id", userID),
			zap.String("data", data),
		)
		b.sendText(chatID, helpText)
	}
}
