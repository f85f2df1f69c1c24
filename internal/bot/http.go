package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HTTPServer exposes the health check, the Telegram webhook endpoint, and
// the notification ingress the external AI service posts results to.
type HTTPServer struct {
	bot    *Bot
	secret string
}

// NewHTTPServer creates the HTTP handler set for the bot
func NewHTTPServer(bot *Bot, secret string) *HTTPServer {
	return &HTTPServer{
		bot:    bot,
		secret: secret,
	}
}

// RegisterRoutes registers all endpoints on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/telegram-webhook", hs.handleTelegramWebhook)
	mux.HandleFunc("/api/notifications", hs.handleNotifications)
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// handleTelegramWebhook receives updates pushed by Telegram in webhook mode
func (hs *HTTPServer) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		hs.bot.logger.Warn("Failed to decode webhook update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Process in background to respond quickly to Telegram
	go hs.bot.HandleUpdate(update)

	w.WriteHeader(http.StatusOK)
}

// handleNotifications is the ingress for asynchronous status callbacks
// from the training/generation service.
func (hs *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	if hs.secret != "" {
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(hs.secret)) != 1 {
			hs.bot.logger.Warn("Notification with bad secret",
				zap.String("remote_addr", r.RemoteAddr))
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
	}

	var update StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		hs.bot.logger.Warn("Failed to decode status update", zap.Error(err))
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if update.TelegramID == 0 {
		http.Error(w, `{"error":"Missing telegram_id"}`, http.StatusBadRequest)
		return
	}

	ctx := context.Background()
	switch update.Type {
	case "model_status_update":
		hs.bot.OnModelStatus(ctx, update.ModelID, update.Status, update.TelegramID, update.Error)
	case "prompt_status_update":
		hs.bot.OnPromptStatus(ctx, update.PromptID, update.Status, update.TelegramID, update.Images, update.Error)
	default:
		hs.bot.logger.Warn("Unknown status update type", zap.String("type", update.Type))
		http.Error(w, `{"error":"Unknown update type"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}
