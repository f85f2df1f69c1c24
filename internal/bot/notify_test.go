package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photostudio/internal/models"
)

func TestOnModelStatusCompleted(t *testing.T) {
	b, tg, _, db := newTestBot(t)
	ctx := context.Background()
	userID := int64(123)

	modelID, err := db.CreateModel(ctx, models.Model{
		TelegramID: userID,
		Name:       "Summer",
		Type:       "male",
		Status:     models.StatusTraining,
	})
	require.NoError(t, err)

	// A stale model listing sits in scratch from an earlier /generate
	b.cacheModels(userID, []models.ModelSummary{{ID: 1, Name: "Old", Status: models.StatusCompleted}})
	b.sessions.SetData(userID, keyChatID, int64(456))

	b.OnModelStatus(ctx, modelID, models.StatusCompleted, userID, "")

	stored, err := db.GetModelDetails(ctx, modelID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusCompleted, stored.Status)

	// The cached listing is invalidated so /generate sees the new model
	assert.Nil(t, b.sessions.GetData(userID, keyModelsCache))

	msgs := tg.messagesTo(456)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "trained and ready")
}

func TestOnModelStatusFailed(t *testing.T) {
	b, tg, _, db := newTestBot(t)
	ctx := context.Background()
	userID := int64(123)

	modelID, err := db.CreateModel(ctx, models.Model{
		TelegramID: userID,
		Name:       "Summer",
		Status:     models.StatusTraining,
	})
	require.NoError(t, err)

	b.OnModelStatus(ctx, modelID, models.StatusFailed, userID, "")

	stored, err := db.GetModelDetails(ctx, modelID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)

	// No error detail from the service still yields a readable message
	assert.Contains(t, tg.lastText(), "Training failed: unknown error")
}

func TestOnPromptStatusCompletedWithImages(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	ctx := context.Background()
	userID := int64(123)

	b.sessions.SetData(userID, keyChatID, int64(456))
	b.OnPromptStatus(ctx, 1, models.StatusCompleted, userID,
		[]string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"}, "")

	assert.Equal(t, 1, tg.countContaining("images are ready"))
	assert.Equal(t, 2, tg.photoCount())
}

func TestOnPromptStatusCompletedNoImages(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	ctx := context.Background()
	userID := int64(123)

	b.OnPromptStatus(ctx, 1, models.StatusCompleted, userID, nil, "")

	// The empty result is reported once, not silently dropped
	assert.Equal(t, 1, tg.countContaining("images were not found"))
	assert.Equal(t, 0, tg.photoCount())
}

func TestOnPromptStatusFailed(t *testing.T) {
	b, tg, _, _ := newTestBot(t)

	b.OnPromptStatus(context.Background(), 1, models.StatusFailed, 123, nil, "model not loaded")

	assert.Contains(t, tg.lastText(), "Generation failed: model not loaded")
	assert.Equal(t, 0, tg.photoCount())
}

func TestNotifyChatIDFallsBackToUserID(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	userID := int64(123)

	// No prior interaction, so no chat id in scratch; for private chats
	// the user id doubles as the chat id.
	b.OnModelStatus(context.Background(), 1, models.StatusCompleted, userID, "")

	msgs := tg.messagesTo(userID)
	require.Len(t, msgs, 1)
}

func TestDuplicateNotificationsRepeat(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	ctx := context.Background()
	userID := int64(123)

	b.OnModelStatus(ctx, 1, models.StatusCompleted, userID, "")
	b.OnModelStatus(ctx, 1, models.StatusCompleted, userID, "")

	// Redelivery is the service's concern; each delivery notifies
	assert.Equal(t, 2, tg.countContaining("trained and ready"))
}
