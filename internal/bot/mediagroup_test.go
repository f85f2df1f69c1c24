package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photostudio/internal/session"
)

func TestMediaGroupAggregation(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	userID := int64(123)
	chatID := int64(456)
	groupID := "album-1"

	b.sessions.SetState(userID, session.StateUploadingPhotos)

	// Telegram delivers each album photo as its own message; one of them
	// arrives twice.
	for _, fileID := range []string{"p1", "p2", "p2", "p3", "p4", "p5"} {
		b.handleMessage(photoMessage(userID, chatID, fileID, groupID))
		time.Sleep(5 * time.Millisecond)
	}

	// Wait out the debounce window
	time.Sleep(200 * time.Millisecond)

	refs := b.groups.fileRefsOf(groupID)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, refs)

	assert.Equal(t, 1, tg.countContaining("Album received"))
	assert.Equal(t, 1, tg.countContaining("5 photos"))
}

func TestMediaGroupFinalizesOnce(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	userID := int64(123)
	chatID := int64(456)
	groupID := "album-1"

	b.sessions.SetState(userID, session.StateUploadingPhotos)

	// Photos keep arriving inside the debounce window; every arrival
	// reschedules the timer, and exactly one finalize must win.
	for i := 0; i < 8; i++ {
		b.handleMessage(photoMessage(userID, chatID, "p"+string(rune('a'+i)), groupID))
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(250 * time.Millisecond)

	assert.Equal(t, 1, tg.countContaining("Album received"))
	assert.Len(t, b.groups.fileRefsOf(groupID), 8)
}

func TestMediaGroupDropsOtherUsers(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	ownerID := int64(123)
	otherID := int64(124)
	chatID := int64(456)
	groupID := "album-1"

	b.sessions.SetState(ownerID, session.StateUploadingPhotos)
	b.sessions.SetState(otherID, session.StateUploadingPhotos)

	b.handleMessage(photoMessage(ownerID, chatID, "p1", groupID))
	b.handleMessage(photoMessage(otherID, chatID, "intruder", groupID))
	b.handleMessage(photoMessage(ownerID, chatID, "p2", groupID))

	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, []string{"p1", "p2"}, b.groups.fileRefsOf(groupID))
}

func TestMediaGroupTraining(t *testing.T) {
	b, _, ai, db := newTestBot(t)
	userID := int64(123)
	chatID := int64(456)
	groupID := "album-1"

	b.sessions.SetState(userID, session.StateUploadingPhotos)
	for _, fileID := range []string{"p1", "p2", "p3"} {
		b.handleMessage(photoMessage(userID, chatID, fileID, groupID))
	}
	time.Sleep(200 * time.Millisecond)

	b.handleCallbackQuery(callbackQuery(userID, chatID, "mg:train:"+groupID))

	reqs := ai.trainingRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"p1", "p2", "p3"}, reqs[0].FileRefs)
	assert.Equal(t, userID, reqs[0].TelegramID)

	// Name was never entered; a default is synthesized
	assert.Contains(t, reqs[0].ModelName, "model_123_")
	assert.Equal(t, "default", reqs[0].ModelType)

	// Buffer is gone after a successful submit
	assert.Nil(t, b.groups.fileRefsOf(groupID))
	assert.Equal(t, session.StateIdle, b.sessions.GetState(userID))

	stored, err := db.GetUserModels(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestMediaGroupRetryKeepsBuffer(t *testing.T) {
	b, tg, ai, _ := newTestBot(t)
	userID := int64(123)
	chatID := int64(456)
	groupID := "album-1"

	b.sessions.SetState(userID, session.StateUploadingPhotos)
	b.handleMessage(photoMessage(userID, chatID, "p1", groupID))
	b.handleMessage(photoMessage(userID, chatID, "p2", groupID))
	time.Sleep(200 * time.Millisecond)

	ai.trainErr = assert.AnError
	b.handleCallbackQuery(callbackQuery(userID, chatID, "mg:train:"+groupID))

	// Buffer survives the failure so the retry button can resubmit it
	assert.Equal(t, []string{"p1", "p2"}, b.groups.fileRefsOf(groupID))
	assert.Contains(t, tg.lastText(), "Could not start training")

	ai.trainErr = nil
	b.handleCallbackQuery(callbackQuery(userID, chatID, "mg:train:"+groupID))

	require.Len(t, ai.trainingRequests(), 1)
	assert.Nil(t, b.groups.fileRefsOf(groupID))
}

func TestMediaGroupNamingFlow(t *testing.T) {
	b, tg, ai, _ := newTestBot(t)
	userID := int64(123)
	chatID := int64(456)
	groupID := "album-1"

	b.sessions.SetState(userID, session.StateUploadingPhotos)
	b.handleMessage(photoMessage(userID, chatID, "p1", groupID))
	b.handleMessage(photoMessage(userID, chatID, "p2", groupID))
	time.Sleep(200 * time.Millisecond)

	b.handleCallbackQuery(callbackQuery(userID, chatID, "mg:name:"+groupID))
	require.Equal(t, session.StateEnteringModelNameForMediaGroup, b.sessions.GetState(userID))

	b.handleMessage(textMessage(userID, chatID, "Vacation 2026"))
	require.Equal(t, session.StateSelectingModelTypeForMediaGroup, b.sessions.GetState(userID))

	b.handleCallbackQuery(callbackQuery(userID, chatID, "mgtype:female"))

	// Type selection resets the conversation, but the entered name and
	// type are preserved for the training call.
	assert.Equal(t, session.StateIdle, b.sessions.GetState(userID))
	assert.Equal(t, "Vacation 2026", b.sessions.GetData(userID, keyModelName))
	assert.Equal(t, "female", b.sessions.GetData(userID, keyModelType))
	assert.Equal(t, 1, tg.countContaining("Model: Vacation 2026"))

	b.handleCallbackQuery(callbackQuery(userID, chatID, "mg:train:"+groupID))

	reqs := ai.trainingRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Vacation 2026", reqs[0].ModelName)
	assert.Equal(t, "female", reqs[0].ModelType)
}

func TestMediaGroupNameTooLong(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	userID := int64(123)
	chatID := int64(456)

	b.sessions.SetState(userID, session.StateEnteringModelNameForMediaGroup)
	longName := make([]byte, 51)
	for i := range longName {
		longName[i] = 'x'
	}
	b.handleMessage(textMessage(userID, chatID, string(longName)))

	assert.Equal(t, session.StateEnteringModelNameForMediaGroup, b.sessions.GetState(userID))
	assert.Contains(t, tg.lastText(), "between 1 and 50")
}

func TestMediaGroupCancelDiscardsBuffer(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	userID := int64(123)
	chatID := int64(456)
	groupID := "album-1"

	b.sessions.SetState(userID, session.StateUploadingPhotos)
	b.handleMessage(photoMessage(userID, chatID, "p1", groupID))
	time.Sleep(200 * time.Millisecond)

	b.handleCallbackQuery(callbackQuery(userID, chatID, "mg:cancel:"+groupID))

	assert.Nil(t, b.groups.fileRefsOf(groupID))
	assert.Equal(t, session.StateIdle, b.sessions.GetState(userID))
}

func TestEvictStaleBuffers(t *testing.T) {
	b, _, _, _ := newTestBot(t)

	b.groups.addPhoto("old-album", 123, 456, "p1")
	time.Sleep(10 * time.Millisecond)

	removed := b.groups.evictStale(time.Millisecond)
	assert.Equal(t, 1, removed)
	assert.Nil(t, b.groups.fileRefsOf("old-album"))

	// Fresh buffers are kept
	b.groups.addPhoto("new-album", 123, 456, "p1")
	assert.Equal(t, 0, b.groups.evictStale(time.Hour))
	assert.NotNil(t, b.groups.fileRefsOf("new-album"))
}
