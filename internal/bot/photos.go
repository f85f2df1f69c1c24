package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"photostudio/internal/session"
)

// handlePhoto processes an incoming photo. Photos are only meaningful while
// the user is uploading a training batch; album photos are delegated to the
// media-group aggregator, standalone photos accumulate in scratch.
func (b *Bot) handlePhoto(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	if b.sessions.GetState(userID) != session.StateUploadingPhotos {
		b.sendText(chatID, "I wasn't expecting a photo. Use /train to start training a model.")
		return
	}

	// Telegram sends several sizes per photo; the last one is the largest
	fileRef := message.Photo[len(message.Photo)-1].FileID

	if message.MediaGroupID != "" {
		b.groups.addPhoto(message.MediaGroupID, userID, chatID, fileRef)
		return
	}

	b.sessions.AddToList(userID, keyPhotos, fileRef)
	photos := b.sessions.GetList(userID, keyPhotos)

	if len(photos) >= b.cfg.MaxPhotos {
		b.showTrainingConfirmation(userID, chatID, len(photos))
		return
	}

	b.updateUploadProgress(userID, chatID, len(photos))
}

// updateUploadProgress keeps a single status message updated as standalone
// photos arrive.
func (b *Bot) updateUploadProgress(userID, chatID int64, count int) {
	text := fmt.Sprintf("📷 Received %d/%d photos. Send more, or press Done to continue.",
		count, b.cfg.MaxPhotos)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", "train:start"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "train:cancel"),
		),
	)

	messageID, _ := b.sessions.GetData(userID, keyStatusMessageID).(int)
	newID := b.editOrSendWithMarkup(chatID, messageID, text, keyboard)
	if newID != messageID {
		b.sessions.SetData(userID, keyStatusMessageID, newID)
	}
}

// showTrainingConfirmation replaces the progress message with the final
// confirm-to-train prompt.
func (b *Bot) showTrainingConfirmation(userID, chatID int64, count int) {
	name, _ := b.sessions.GetData(userID, keyModelName).(string)
	modelType, _ := b.sessions.GetData(userID, keyModelType).(string)
	if name == "" {
		name = "(auto-generated)"
	}
	if modelType == "" {
		modelType = "default"
	}

	text := fmt.Sprintf("✅ %d photos collected.\n\nModel: %s\nType: %s\n\nStart training?",
		count, name, modelType)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Start training", "train:start"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "train:cancel"),
		),
	)

	messageID, _ := b.sessions.GetData(userID, keyStatusMessageID).(int)
	newID := b.editOrSendWithMarkup(chatID, messageID, text, keyboard)
	if newID != messageID {
		b.sessions.SetData(userID, keyStatusMessageID, newID)
	}

	b.logger.Info("Training batch complete",
		zap.Int64("user_id", userID),
		zap.Int("photo_count", count),
	)
}

// trainingNameAndType returns the stored model name and type, synthesizing
// defaults when the user skipped naming.
func (b *Bot) trainingNameAndType(userID int64) (string, string) {
	name, _ := b.sessions.GetData(userID, keyModelName).(string)
	modelType, _ := b.sessions.GetData(userID, keyModelType).(string)
	if name == "" {
		name = fmt.Sprintf("model_%d_%d", userID, time.Now().Unix())
	}
	if modelType == "" {
		modelType = "default"
	}
	return name, modelType
}
