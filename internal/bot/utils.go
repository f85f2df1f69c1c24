package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sendMessage sends a chattable and returns the resulting message id,
// 0 when sending is unavailable or failed.
func (b *Bot) sendMessage(msg tgbotapi.Chattable) int {
	if b.tg == nil {
		return 0 // For testing
	}

	sent, err := b.tg.Send(msg)
	if err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err))
		return 0
	}
	return sent.MessageID
}

// sendText sends a plain text message to a chat
func (b *Bot) sendText(chatID int64, text string) int {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// sendTextWithMarkup sends a text message with an inline keyboard
func (b *Bot) sendTextWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	return b.sendMessage(msg)
}

// editOrSend edits a message in place and falls back to sending a new one
// when editing fails (the target may have been deleted by the user).
// Returns the id of the message that now shows the text.
func (b *Bot) editOrSend(chatID int64, messageID int, text string) int {
	if b.tg == nil {
		return messageID
	}
	if messageID != 0 {
		if _, err := b.tg.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err == nil {
			return messageID
		} else {
			b.logger.Warn("Failed to edit message, sending a new one",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", messageID),
				zap.Error(err),
			)
		}
	}
	return b.sendText(chatID, text)
}

// editOrSendWithMarkup is editOrSend for messages carrying an inline keyboard
func (b *Bot) editOrSendWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) int {
	if b.tg == nil {
		return messageID
	}
	if messageID != 0 {
		if _, err := b.tg.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)); err == nil {
			return messageID
		} else {
			b.logger.Warn("Failed to edit message, sending a new one",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", messageID),
				zap.Error(err),
			)
		}
	}
	return b.sendTextWithMarkup(chatID, text, markup)
}

// sendPhoto sends a photo by URL or file reference with optional buttons
func (b *Bot) sendPhoto(chatID int64, fileRef, caption string, markup *tgbotapi.InlineKeyboardMarkup) {
	if b.tg == nil {
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(fileRef))
	photo.Caption = caption
	if markup != nil {
		photo.ReplyMarkup = markup
	}
	if _, err := b.tg.Send(photo); err != nil {
		b.logger.Warn("Failed to send photo",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// notifyAdmin escalates an internal failure to the configured admin chat
func (b *Bot) notifyAdmin(userID int64, detail interface{}) {
	if b.cfg.AdminChatID == 0 {
		return
	}
	b.sendText(b.cfg.AdminChatID, fmt.Sprintf("⚠️ Handler failure for user %d: %v", userID, detail))
}
