package router

import (
	"net/http"

	"github.com/dianedanzo/bear-app/internal/auth"
	"github.com/dianedanzo/bear-app/internal/handlers"
	"github.com/dianedanzo/bear-app/internal/metrics"
	"github.com/dianedanzo/bear-app/internal/middleware"
)

// New returns a mux serving the unauthenticated and operator routes:
// health, metrics, the bot webhook and the operator API.
func New(authHandler *auth.Handler, authSvc auth.Service, adminHandler *handlers.AdminHandler, webhook *handlers.WebhookHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("POST /telegram/webhook", webhook)

	mux.HandleFunc("POST /admin/login", authHandler.Login)
	operatorOnly := middleware.OperatorAuth(authSvc, auth.RoleOperator)
	mux.Handle("GET /admin/withdrawals", operatorOnly(http.HandlerFunc(adminHandler.ListWithdrawals)))
	mux.Handle("POST /admin/withdrawals/{id}/status", operatorOnly(http.HandlerFunc(adminHandler.SettleWithdrawal)))

	return mux
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}` + "\n"))
}
