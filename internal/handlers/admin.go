package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dianedanzo/bear-app/internal/middleware"
	"github.com/dianedanzo/bear-app/internal/models"
	"github.com/dianedanzo/bear-app/internal/services"
)

// Operator queue page sizes.
const (
	defaultQueueLimit = 50
	maxQueueLimit     = 200
)

// WithdrawalDesk is what operators need to work the payout queue.
type WithdrawalDesk interface {
	ListByStatus(ctx context.Context, status string, limit int) ([]*models.WithdrawalRequest, error)
	Settle(ctx context.Context, requestID uuid.UUID, status string) (*models.WithdrawalRequest, error)
}

// AdminHandler serves operator endpoints behind middleware.OperatorAuth.
type AdminHandler struct {
	Withdrawals WithdrawalDesk
	Validator   BodyValidator
	Logger      *slog.Logger
}

type settleResponse struct {
	OK           bool        `json:"ok"`
	WithdrawalID string      `json:"withdrawal_id"`
	UserID       string      `json:"user_id"`
	Amount       json.Number `json:"amount"`
	Status       string      `json:"status"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type queueItem struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Amount    json.Number `json:"amount"`
	Method    string      `json:"method"`
	Address   string      `json:"address"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// GET /admin/withdrawals?status=pending&limit=n
func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.WithdrawalStatusPending
	}
	limit, ok := pageLimit(r, defaultQueueLimit, maxQueueLimit)
	if !ok {
		writeErrorCode(w, http.StatusBadRequest, "missing_params")
		return
	}

	reqs, err := h.Withdrawals.ListByStatus(r.Context(), status, limit)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	items := make([]queueItem, 0, len(reqs))
	for _, wr := range reqs {
		items = append(items, queueItem{
			ID:        wr.ID.String(),
			UserID:    wr.UserID,
			Amount:    money(wr.Amount),
			Method:    wr.Method,
			Address:   wr.Address,
			Status:    wr.Status,
			CreatedAt: wr.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, itemsResponse[queueItem]{Items: items})
}

// POST /admin/withdrawals/{id}/status
func (h *AdminHandler) SettleWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_withdrawal_id")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, h.Validator, services.SchemaSettleWithdrawal, &req) {
		return
	}

	wr, err := h.Withdrawals.Settle(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	h.Logger.Info("withdrawal status changed by operator",
		"operator_id", middleware.OperatorFromCtx(r.Context()), "withdrawal_id", wr.ID, "status", wr.Status)
	writeJSON(w, http.StatusOK, settleResponse{
		OK:           true,
		WithdrawalID: wr.ID.String(),
		UserID:       wr.UserID,
		Amount:       money(wr.Amount),
		Status:       wr.Status,
		UpdatedAt:    wr.UpdatedAt,
	})
}
