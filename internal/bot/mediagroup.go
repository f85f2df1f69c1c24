package bot

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Debounce constants for media-group aggregation. Telegram delivers each
// album photo as a separate message and never signals the end of the album,
// so a batch counts as complete once no photo arrived for a quiet period.
const (
	mediaGroupDebounce = 2 * time.Second
	mediaGroupSettle   = 1500 * time.Millisecond
	mediaGroupMaxAge   = 30 * time.Minute
)

// groupBuffer accumulates the photos of one media group
type groupBuffer struct {
	ownerID         int64
	chatID          int64
	fileRefs        []string
	seen            map[string]bool
	lastUpdate      time.Time
	processing      bool
	statusMessageID int
	timer           *time.Timer
}

// mediaGroupAggregator turns the burst of individually-delivered photos of
// one Telegram album into a single "batch ready" prompt. Buffers survive
// until the user confirms or cancels training, or until EvictStale removes
// abandoned ones.
type mediaGroupAggregator struct {
	bot      *Bot
	mu       sync.Mutex
	groups   map[string]*groupBuffer
	debounce time.Duration
	settle   time.Duration
}

func newMediaGroupAggregator(b *Bot, debounce, settle time.Duration) *mediaGroupAggregator {
	return &mediaGroupAggregator{
		bot:      b,
		groups:   make(map[string]*groupBuffer),
		debounce: debounce,
		settle:   settle,
	}
}

// addPhoto records one photo of a media group and (re)schedules the
// finalize check. Photos from any user other than the group's first sender
// are dropped.
func (a *mediaGroupAggregator) addPhoto(groupID string, userID, chatID int64, fileRef string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.groups[groupID]
	if !ok {
		buf = &groupBuffer{
			ownerID: userID,
			chatID:  chatID,
			seen:    make(map[string]bool),
		}
		a.groups[groupID] = buf
	}

	if buf.ownerID != userID {
		a.bot.logger.Warn("Dropping photo from non-owner of media group",
			zap.String("media_group_id", groupID),
			zap.Int64("owner_id", buf.ownerID),
			zap.Int64("user_id", userID),
		)
		return
	}

	if !buf.seen[fileRef] {
		buf.seen[fileRef] = true
		buf.fileRefs = append(buf.fileRefs, fileRef)
	}
	buf.lastUpdate = time.Now()

	// Once the batch-ready prompt is up, late photos still join the batch
	// but must not clobber the prompt with a progress update.
	if !buf.processing {
		if buf.statusMessageID == 0 {
			buf.statusMessageID = a.bot.sendText(chatID,
				fmt.Sprintf("📷 Receiving photos… %d so far.", len(buf.fileRefs)))
		} else {
			buf.statusMessageID = a.bot.editOrSend(chatID, buf.statusMessageID,
				fmt.Sprintf("📷 Receiving photos… %d so far.", len(buf.fileRefs)))
		}
	}

	if buf.timer != nil {
		buf.timer.Stop()
	}
	buf.timer = time.AfterFunc(a.debounce, func() { a.finalize(groupID) })
}

// finalize runs once the debounce delay has elapsed since the most recent
// photo. It is idempotent: a buffer is finalized at most once.
func (a *mediaGroupAggregator) finalize(groupID string) {
	a.mu.Lock()

	buf, ok := a.groups[groupID]
	if !ok || buf.processing {
		a.mu.Unlock()
		return
	}

	if time.Since(buf.lastUpdate) <= a.settle {
		// A photo slipped in after this run was scheduled; the rescheduled
		// timer will finalize instead.
		a.mu.Unlock()
		return
	}

	buf.processing = true
	ownerID := buf.ownerID
	chatID := buf.chatID
	messageID := buf.statusMessageID
	count := len(buf.fileRefs)
	a.mu.Unlock()

	a.bot.logger.Info("Media group batch ready",
		zap.String("media_group_id", groupID),
		zap.Int64("user_id", ownerID),
		zap.Int("photo_count", count),
	)
	a.bot.promptGroupReady(ownerID, chatID, messageID, groupID, count)
}

// fileRefsOf returns a copy of a buffer's collected file references,
// nil when the group is unknown.
func (a *mediaGroupAggregator) fileRefsOf(groupID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.groups[groupID]
	if !ok {
		return nil
	}
	return append([]string(nil), buf.fileRefs...)
}

func (a *mediaGroupAggregator) statusMessageOf(groupID string) (int64, int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.groups[groupID]
	if !ok {
		return 0, 0
	}
	return buf.chatID, buf.statusMessageID
}

// delete removes a buffer after the user confirmed or cancelled
func (a *mediaGroupAggregator) delete(groupID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if buf, ok := a.groups[groupID]; ok {
		if buf.timer != nil {
			buf.timer.Stop()
		}
		delete(a.groups, groupID)
	}
}

// evictStale drops buffers the user abandoned without confirming or
// cancelling. Returns how many were removed.
func (a *mediaGroupAggregator) evictStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for groupID, buf := range a.groups {
		if buf.lastUpdate.Before(cutoff) {
			if buf.timer != nil {
				buf.timer.Stop()
			}
			delete(a.groups, groupID)
			removed++
		}
	}
	return removed
}

// promptGroupReady replaces the album status message with the
// confirm-to-train prompt. The buffer stays alive until the user acts.
func (b *Bot) promptGroupReady(userID, chatID int64, messageID int, groupID string, count int) {
	name, _ := b.sessions.GetData(userID, keyModelName).(string)
	modelType, _ := b.sessions.GetData(userID, keyModelType).(string)
	if name == "" {
		name = "(auto-generated)"
	}
	if modelType == "" {
		modelType = "default"
	}

	text := fmt.Sprintf("✅ Album received: %d photos.\n\nModel: %s\nType: %s\n\nStart training?",
		count, name, modelType)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Start training", "mg:train:"+groupID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Name model", "mg:name:"+groupID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "mg:cancel:"+groupID),
		),
	)
	b.editOrSendWithMarkup(chatID, messageID, text, keyboard)
}
