package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/dianedanzo/bear-app/internal/execution"
	"github.com/dianedanzo/bear-app/internal/metrics"
)

// SecretTokenHeader carries the secret registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const enqueueTimeout = 2 * time.Second

// WebhookHandler acknowledges bot updates. It always answers 200 so the
// platform never retries; failures are only logged.
type WebhookHandler struct {
	Secret  string
	Enqueue execution.InsertRegisterUserFunc
	Logger  *slog.Logger
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	log := h.logger()

	if h.Secret != "" {
		got := r.Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			log.Warn("webhook secret mismatch")
			metrics.RecordWebhookUpdate("forbidden")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordWebhookUpdate("unreadable")
		return
	}
	var update tgmodels.Update
	if err := json.Unmarshal(body, &update); err != nil {
		log.Warn("webhook update not decodable", "error", err)
		metrics.RecordWebhookUpdate("malformed")
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || !isStartCommand(msg.Text) {
		metrics.RecordWebhookUpdate("ignored")
		return
	}

	name := msg.From.Username
	if name == "" {
		name = msg.From.FirstName
	}
	args := execution.RegisterUserArgs{UserID: strconv.FormatInt(msg.From.ID, 10), Username: name}
	if h.Enqueue == nil || msg.From.ID <= 0 {
		metrics.RecordWebhookUpdate("ignored")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), enqueueTimeout)
	defer cancel()
	if err := h.Enqueue(ctx, args); err != nil {
		log.Error("enqueue register_user failed", "user_id", args.UserID, "error", err)
		metrics.RecordWebhookUpdate("error")
		return
	}
	metrics.RecordWebhookUpdate("start")
}

func (h *WebhookHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// isStartCommand matches "/start", "/start payload" and "/start@BotName".
func isStartCommand(text string) bool {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd == "/start"
}
