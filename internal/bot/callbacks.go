package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"photostudio/internal/models"
	"photostudio/internal/session"
	"photostudio/internal/webhook"
)

var modelTypes = map[string]bool{"male": true, "female": true, "other": true}

// handleModelTypeCallback stores the selected type and asks for photos
func (b *Bot) handleModelTypeCallback(query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if b.sessions.GetState(userID) != session.StateSelectingModelType {
		b.sendText(chatID, "This button has expired. Use /train to start over.")
		return
	}

	modelType := strings.TrimPrefix(query.Data, "type:")
	if !modelTypes[modelType] {
		b.sendText(chatID, "Unknown model type. Please pick one of the buttons.")
		return
	}

	b.sessions.SetData(userID, keyModelType, modelType)
	b.sessions.SetState(userID, session.StateUploadingPhotos)
	b.sendText(chatID, fmt.Sprintf(
		"Great! Now send me up to %d photos of the subject.\n\nYou can send them one by one or as an album. Good photos: sharp, well lit, one face per shot.",
		b.cfg.MaxPhotos))
}

// handleMediaGroupTypeCallback finishes the album naming flow. After the
// reset the entered name and type remain available through the preserved
// scratch keys, so the refreshed confirm prompt and the later training
// call still see them.
func (b *Bot) handleMediaGroupTypeCallback(query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if b.sessions.GetState(userID) != session.StateSelectingModelTypeForMediaGroup {
		b.sendText(chatID, "This button has expired.")
		return
	}

	modelType := strings.TrimPrefix(query.Data, "mgtype:")
	if !modelTypes[modelType] {
		b.sendText(chatID, "Unknown model type. Please pick one of the buttons.")
		return
	}

	groupID, _ := b.sessions.GetData(userID, keyMediaGroupID).(string)
	b.sessions.SetData(userID, keyModelType, modelType)
	b.sessions.ResetState(userID)

	refs := b.groups.fileRefsOf(groupID)
	if refs == nil {
		b.sendText(chatID, "That photo album has expired. Please upload the photos again.")
		return
	}

	statusChatID, messageID := b.groups.statusMessageOf(groupID)
	b.promptGroupReady(userID, statusChatID, messageID, groupID, len(refs))
}

// handleModelSelectCallback stores the chosen model and asks for a prompt
func (b *Bot) handleModelSelectCallback(query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if b.sessions.GetState(userID) != session.StateSelectingModel {
		b.sendText(chatID, "This button has expired. Use /generate to start over.")
		return
	}

	modelID, err := strconv.ParseInt(strings.TrimPrefix(query.Data, "model:"), 10, 64)
	if err != nil {
		b.logger.Warn("Malformed model callback payload",
			zap.Int64("user_id", userID),
			zap.String("data", query.Data),
		)
		b.sendText(chatID, "Something went wrong with that selection. Use /generate to start over.")
		return
	}

	b.sessions.SetData(userID, keyModelID, modelID)
	b.sessions.SetState(userID, session.StateEnteringPrompt)
	b.sendText(chatID, fmt.Sprintf(
		"Describe the image you want (up to %d characters):", maxPromptLen))
}

// handleStartTrainingCallback submits the standalone-photo training batch
func (b *Bot) handleStartTrainingCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if b.sessions.GetState(userID) != session.StateUploadingPhotos {
		b.sendText(chatID, "This button has expired. Use /train to start over.")
		return
	}

	photos := b.sessions.GetList(userID, keyPhotos)
	if len(photos) == 0 {
		// Mid-flow state went missing; recover by restarting the flow
		b.sessions.ResetState(userID)
		b.sendText(chatID, "I lost track of your photos. Please start over with /train.")
		return
	}

	name, modelType := b.trainingNameAndType(userID)
	b.sessions.SetState(userID, session.StateTrainingModel)

	err := b.ai.StartTraining(ctx, webhook.TrainingRequest{
		ModelName:  name,
		ModelType:  modelType,
		FileRefs:   photos,
		TelegramID: userID,
	})
	if err != nil {
		b.logger.Warn("Training webhook failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		// Back to the confirm step so the retry button works
		b.sessions.SetState(userID, session.StateUploadingPhotos)
		b.sendTrainingRetry(chatID)
		return
	}

	b.recordModel(ctx, userID, name, modelType)
	b.sessions.ResetState(userID)
	b.sendText(chatID, fmt.Sprintf(
		"🚀 Training of %q started! I'll message you when the model is ready.", name))
}

// handleMediaGroupCallback routes mg:train / mg:name / mg:cancel buttons
func (b *Bot) handleMediaGroupCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	rest := strings.TrimPrefix(query.Data, "mg:")
	action, groupID, ok := strings.Cut(rest, ":")
	if !ok {
		b.logger.Warn("Malformed media group callback payload",
			zap.Int64("user_id", userID),
			zap.String("data", query.Data),
		)
		return
	}

	switch action {
	case "train":
		b.startMediaGroupTraining(ctx, userID, chatID, groupID)
	case "name":
		b.sessions.SetData(userID, keyMediaGroupID, groupID)
		b.sessions.SetState(userID, session.StateEnteringModelNameForMediaGroup)
		b.sendText(chatID, fmt.Sprintf(
			"Enter a name for the model (up to %d characters):", maxMediaGroupModelNameLen))
	case "cancel":
		b.groups.delete(groupID)
		b.sessions.ResetState(userID)
		b.sendText(chatID, "Cancelled. The uploaded album was discarded.")
	default:
		b.sendText(chatID, helpText)
	}
}

func (b *Bot) startMediaGroupTraining(ctx context.Context, userID, chatID int64, groupID string) {
	refs := b.groups.fileRefsOf(groupID)
	if refs == nil {
		b.sendText(chatID, "That photo album has expired. Please upload the photos again.")
		return
	}

	name, modelType := b.trainingNameAndType(userID)
	b.sessions.SetState(userID, session.StateTrainingModel)

	err := b.ai.StartTraining(ctx, webhook.TrainingRequest{
		ModelName:  name,
		ModelType:  modelType,
		FileRefs:   refs,
		TelegramID: userID,
	})
	if err != nil {
		b.logger.Warn("Training webhook failed",
			zap.Int64("user_id", userID),
			zap.String("media_group_id", groupID),
			zap.Error(err),
		)
		// Buffer stays alive so the retry button can resubmit it
		b.sessions.SetState(userID, session.StateIdle)
		b.sendMediaGroupTrainingRetry(chatID, groupID)
		return
	}

	b.groups.delete(groupID)
	b.recordModel(ctx, userID, name, modelType)
	b.sessions.ResetState(userID)
	b.sendText(chatID, fmt.Sprintf(
		"🚀 Training of %q started! I'll message you when the model is ready.", name))
}

// handleStartGenerationCallback submits the generation request
func (b *Bot) handleStartGenerationCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if b.sessions.GetState(userID) != session.StateGeneratingImages {
		b.sendText(chatID, "This button has expired. Use /generate to start over.")
		return
	}

	modelID, okID := b.sessions.GetData(userID, keyModelID).(int64)
	prompt, okPrompt := b.sessions.GetData(userID, keyPrompt).(string)
	if !okID || !okPrompt || prompt == "" {
		// Mid-flow state went missing; recover by restarting the flow
		b.logger.Warn("Missing scratch data at generation start",
			zap.Int64("user_id", userID),
			zap.Bool("has_model_id", okID),
			zap.Bool("has_prompt", okPrompt),
		)
		b.sessions.ResetState(userID)
		b.sendText(chatID, "I lost track of your request. Please start over with /generate.")
		return
	}

	promptID, err := b.ai.StartGeneration(ctx, webhook.GenerationRequest{
		ModelID:    modelID,
		Prompt:     prompt,
		TelegramID: userID,
		NumImages:  b.cfg.NumImages,
	})
	if err != nil {
		b.logger.Warn("Generation webhook failed",
			zap.Int64("user_id", userID),
			zap.Int64("model_id", modelID),
			zap.Error(err),
		)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔁 Retry", "gen:start"),
				tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "gen:cancel"),
			),
		)
		b.sendTextWithMarkup(chatID,
			"😔 Could not start generation right now. Try again?", keyboard)
		return
	}

	if _, err := b.db.CreatePrompt(ctx, models.Prompt{
		ModelID:    modelID,
		TelegramID: userID,
		Text:       prompt,
		Status:     models.StatusPending,
	}); err != nil {
		b.logger.Error("Failed to record prompt",
			zap.Int64("user_id", userID),
			zap.Int64("model_id", modelID),
			zap.Error(err),
		)
	}

	b.logger.Info("Generation started",
		zap.Int64("user_id", userID),
		zap.Int64("model_id", modelID),
		zap.String("prompt_id", promptID),
	)
	b.sessions.ResetState(userID)
	b.sendText(chatID, "🎨 Generation started! I'll send the images when they are ready.")
}

// handleEditPromptCallback returns the user to prompt entry
func (b *Bot) handleEditPromptCallback(query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if b.sessions.GetState(userID) != session.StateGeneratingImages {
		b.sendText(chatID, "This button has expired. Use /generate to start over.")
		return
	}

	b.sessions.SetState(userID, session.StateEnteringPrompt)
	b.sendText(chatID, fmt.Sprintf(
		"Send a new prompt (up to %d characters):", maxPromptLen))
}

// handleGenerateAgainCallback re-enters prompt entry for the model the
// last generation used, when it is still in scratch.
func (b *Bot) handleGenerateAgainCallback(query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	if _, ok := b.sessions.GetData(userID, keyModelID).(int64); !ok {
		b.sendText(chatID, "Use /generate to pick a model first.")
		return
	}

	b.sessions.SetState(userID, session.StateEnteringPrompt)
	b.sendText(chatID, fmt.Sprintf(
		"Describe the image you want (up to %d characters):", maxPromptLen))
}

// handleCancelCallback aborts the current flow from an inline button
func (b *Bot) handleCancelCallback(query *tgbotapi.CallbackQuery) {
	b.sessions.ResetState(query.From.ID)
	b.sendText(query.Message.Chat.ID, "Cancelled. Use /train or /generate to start again.")
}

// sendTrainingRetry offers the retry affordance after a failed training call
func (b *Bot) sendTrainingRetry(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Retry", "train:start"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "train:cancel"),
		),
	)
	b.sendTextWithMarkup(chatID, "😔 Could not start training right now. Try again?", keyboard)
}

func (b *Bot) sendMediaGroupTrainingRetry(chatID int64, groupID string) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Retry", "mg:train:"+groupID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "mg:cancel:"+groupID),
		),
	)
	b.sendTextWithMarkup(chatID, "😔 Could not start training right now. Try again?", keyboard)
}

// recordModel persists the accepted training job in the local store
func (b *Bot) recordModel(ctx context.Context, userID int64, name, modelType string) {
	if _, err := b.db.CreateModel(ctx, models.Model{
		TelegramID: userID,
		Name:       name,
		Type:       modelType,
		Status:     models.StatusTraining,
	}); err != nil {
		b.logger.Error("Failed to record model",
			zap.Int64("user_id", userID),
			zap.String("model_name", name),
			zap.Error(err),
		)
	}
}
