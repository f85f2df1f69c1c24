package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"photostudio/internal/session"
)

// modelTypeKeyboard builds the model type selection buttons. prefix is
// "type" for the /train flow and "mgtype" for the media-group naming flow.
func modelTypeKeyboard(prefix string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨 Male", prefix+":male"),
			tgbotapi.NewInlineKeyboardButtonData("👩 Female", prefix+":female"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧑 Other", prefix+":other"),
		),
	)
}

// handleModelNameInput stores the model name entered during /train
func (b *Bot) handleModelNameInput(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	name := strings.TrimSpace(message.Text)

	if name == "" || utf8.RuneCountInString(name) > maxModelNameLen {
		b.sendText(chatID,
			fmt.Sprintf("❌ The model name must be between 1 and %d characters. Please try again:", maxModelNameLen))
		return
	}

	b.sessions.SetData(userID, keyModelName, name)
	b.sessions.SetState(userID, session.StateSelectingModelType)
	b.sendTextWithMarkup(chatID,
		fmt.Sprintf("Model %q. Now pick the model type:", name),
		modelTypeKeyboard("type"))
}

// handleMediaGroupNameInput stores the model name entered after an album
// upload. The value lands in a preserved scratch key, so it survives the
// reset that follows type selection.
func (b *Bot) handleMediaGroupNameInput(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	name := strings.TrimSpace(message.Text)

	if name == "" || utf8.RuneCountInString(name) > maxMediaGroupModelNameLen {
		b.sendText(chatID,
			fmt.Sprintf("❌ The model name must be between 1 and %d characters. Please try again:", maxMediaGroupModelNameLen))
		return
	}

	b.sessions.SetData(userID, keyModelName, name)
	b.sessions.SetState(userID, session.StateSelectingModelTypeForMediaGroup)
	b.sendTextWithMarkup(chatID,
		fmt.Sprintf("Model %q. Now pick the model type:", name),
		modelTypeKeyboard("mgtype"))
}

// handlePromptInput stores the generation prompt and shows the confirm step
func (b *Bot) handlePromptInput(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	prompt := strings.TrimSpace(message.Text)

	if prompt == "" || utf8.RuneCountInString(prompt) > maxPromptLen {
		b.sendText(chatID,
			fmt.Sprintf("❌ The prompt must be between 1 and %d characters. Please try again:", maxPromptLen))
		return
	}

	b.sessions.SetData(userID, keyPrompt, prompt)
	b.sessions.SetState(userID, session.StateGeneratingImages)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Generate", "gen:start"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit prompt", "gen:edit"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "gen:cancel"),
		),
	)
	b.sendTextWithMarkup(chatID,
		fmt.Sprintf("Prompt:\n\n%s\n\nStart generating?", prompt), keyboard)
}
