package main

import (
	"net/http"

	"github.com/dianedanzo/bear-app/internal/handlers"
	"github.com/dianedanzo/bear-app/internal/middleware"
)

// RegisterRewardRoutes adds the mini-app endpoints to mux.
// Chain: TelegramAuth -> (RateLimiter on writes) -> handler.
func RegisterRewardRoutes(mux *http.ServeMux, gate *middleware.TelegramAuth, limiter *middleware.RateLimiter, h *handlers.RewardsHandler) {
	mux.Handle("GET /balance", gate.Require(h.Balance))
	mux.Handle("GET /tasks", gate.Require(h.Tasks))
	mux.Handle("GET /profile", gate.Require(h.Profile))
	mux.Handle("GET /ledger", gate.Require(h.Ledger))

	// Writes are throttled per identity on top of the store's own guarantees.
	mux.Handle("POST /tasks/complete", gate.Require(limiter.Limit(h.CompleteTask)))
	mux.Handle("POST /ads/complete", gate.Require(limiter.Limit(h.CompleteAd)))
	mux.Handle("POST /withdraw", gate.Require(limiter.Limit(h.Withdraw)))
}
