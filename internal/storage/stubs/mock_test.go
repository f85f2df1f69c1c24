package stubs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photostudio/internal/models"
)

func TestMockDB_Users(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	require.NoError(t, db.Initialize(ctx))

	// Unknown user is (nil, nil), not an error
	user, err := db.GetUser(ctx, 123)
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, db.CreateUser(ctx, models.User{TelegramID: 123, Username: "alice", Credits: 10}))

	user, err = db.GetUser(ctx, 123)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 10, user.Credits)

	// Re-registering does not overwrite
	require.NoError(t, db.CreateUser(ctx, models.User{TelegramID: 123, Username: "other", Credits: 0}))
	user, err = db.GetUser(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	require.NoError(t, db.UpdateUser(ctx, models.User{TelegramID: 123, Username: "alice", Credits: 7}))
	user, err = db.GetUser(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, 7, user.Credits)
}

func TestMockDB_Models(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	id, err := db.CreateModel(ctx, models.Model{
		TelegramID: 123,
		Name:       "Summer",
		Type:       "male",
		Status:     models.StatusTraining,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := db.GetModelDetails(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Summer", got.Name)
	assert.Equal(t, models.StatusTraining, got.Status)

	require.NoError(t, db.UpdateModel(ctx, id, models.StatusCompleted))
	got, err = db.GetModelDetails(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	list, err := db.GetUserModels(ctx, 123)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Unknown model is (nil, nil)
	missing, err := db.GetModelDetails(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMockDB_Prompts(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	id, err := db.CreatePrompt(ctx, models.Prompt{
		ModelID:    1,
		TelegramID: 123,
		Text:       "a portrait in the mountains",
		Status:     models.StatusPending,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, db.UpdatePrompt(ctx, id, models.StatusCompleted))

	// Updating an unknown prompt is a no-op, not an error
	require.NoError(t, db.UpdatePrompt(ctx, 999, models.StatusFailed))
}
