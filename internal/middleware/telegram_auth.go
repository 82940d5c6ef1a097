package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dianedanzo/bear-app/internal/initdata"
	"github.com/dianedanzo/bear-app/internal/models"
)

// Header names the mini-app clients send the signed init data under.
const (
	InitDataHeader    = "X-Init-Data"
	AltInitDataHeader = "X-Telegram-Init-Data"
)

// Rejection is the structured failure the gate produces instead of an identity.
type Rejection struct {
	Status int
	Code   string
}

func (r *Rejection) Error() string { return r.Code }

var (
	errMissingInitData     = &Rejection{http.StatusUnauthorized, "missing_init_data"}
	errServerMisconfigured = &Rejection{http.StatusInternalServerError, "server_misconfigured"}
	errInvalidInitData     = &Rejection{http.StatusUnauthorized, "invalid_init_data"}
	errExpiredInitData     = &Rejection{http.StatusUnauthorized, "expired_init_data"}
	errInvalidUser         = &Rejection{http.StatusUnauthorized, "invalid_user"}
	errMissingDevID        = &Rejection{http.StatusBadRequest, "missing_dev_id"}
)

// AuthedHandler receives the identity resolved by the gate as an explicit argument.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, id models.Identity)

// TelegramAuth verifies mini-app init data on every protected route.
type TelegramAuth struct {
	BotToken string
	// MaxAge bounds how old auth_date may be; zero disables the check.
	MaxAge time.Duration

	// DevOverride and DevToken only take effect in binaries built with
	// -tags devoverride.
	DevOverride bool
	DevToken    string

	Now    func() time.Time
	Logger *slog.Logger
}

// Authenticate runs the gate against r and returns either an identity or a rejection.
func (g *TelegramAuth) Authenticate(r *http.Request) (models.Identity, *Rejection) {
	if id, rej, ok := g.devOverride(r); ok {
		return id, rej
	}

	raw := initDataFrom(r)
	if raw == "" {
		return models.Identity{}, errMissingInitData
	}
	if g.BotToken == "" {
		g.logger().Error("BOT_TOKEN is not configured; rejecting authenticated request")
		return models.Identity{}, errServerMisconfigured
	}

	fields, err := initdata.Verify(raw, g.BotToken)
	if err != nil {
		g.logger().Debug("init data rejected", "error", err)
		return models.Identity{}, errInvalidInitData
	}
	if err := initdata.CheckFreshness(fields, g.now(), g.MaxAge); err != nil {
		return models.Identity{}, errExpiredInitData
	}
	id, err := initdata.ResolveIdentity(fields)
	if err != nil {
		return models.Identity{}, errInvalidUser
	}
	return id, nil
}

// Require wraps next so it only runs for authenticated callers.
func (g *TelegramAuth) Require(next AuthedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, rej := g.Authenticate(r)
		if rej != nil {
			writeRejection(w, rej)
			return
		}
		next(w, r, id)
	})
}

func (g *TelegramAuth) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *TelegramAuth) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func initDataFrom(r *http.Request) string {
	if v := r.Header.Get(InitDataHeader); v != "" {
		return v
	}
	if v := r.Header.Get(AltInitDataHeader); v != "" {
		return v
	}
	return r.URL.Query().Get("initData")
}

func writeRejection(w http.ResponseWriter, rej *Rejection) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rej.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": rej.Code})
}
