package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/metrics"
	"github.com/dianedanzo/bear-app/internal/models"
	"github.com/dianedanzo/bear-app/internal/services"
)

// Ledger tail page sizes.
const (
	defaultLedgerLimit = 20
	maxLedgerLimit     = 100
)

type Completer interface {
	Complete(ctx context.Context, id models.Identity, taskID string) (services.CompletionResult, error)
	CompleteAd(ctx context.Context, id models.Identity, blockID string) (services.CompletionResult, error)
}

type Withdrawer interface {
	Request(ctx context.Context, id models.Identity, in services.WithdrawalInput) (*models.WithdrawalRequest, decimal.Decimal, error)
}

type Balances interface {
	BalanceOf(ctx context.Context, userID string) (decimal.Decimal, error)
	Entries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)
}

type Catalog interface {
	TasksFor(ctx context.Context, userID string) ([]services.TaskView, error)
	ProfileOf(ctx context.Context, id models.Identity) (services.Profile, error)
}

// BodyValidator checks a raw request body against a named schema.
type BodyValidator interface {
	Validate(name string, body []byte) error
}

// RewardsHandler serves the mini-app endpoints. Every method receives the
// identity resolved by the auth gate.
type RewardsHandler struct {
	Completions Completer
	Withdrawals Withdrawer
	Balances    Balances
	Catalog     Catalog
	Validator   BodyValidator
	Logger      *slog.Logger
}

type balanceResponse struct {
	OK      bool        `json:"ok"`
	Balance json.Number `json:"balance"`
}

type completeResponse struct {
	OK      bool        `json:"ok"`
	Balance json.Number `json:"balance"`
	Already bool        `json:"already,omitempty"`
}

type withdrawResponse struct {
	OK           bool        `json:"ok"`
	Balance      json.Number `json:"balance"`
	WithdrawalID string      `json:"withdrawal_id"`
	Status       string      `json:"status"`
}

type taskItem struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Reward      json.Number `json:"reward"`
	ChannelURL  *string     `json:"channel_url"`
	ChannelName *string     `json:"channel_name"`
	Completed   bool        `json:"completed"`
}

type ledgerItem struct {
	ID        string      `json:"id"`
	Amount    json.Number `json:"amount"`
	Reason    string      `json:"reason"`
	RefID     *string     `json:"ref_id"`
	CreatedAt time.Time   `json:"created_at"`
}

type profileResponse struct {
	TelegramID     string      `json:"telegram_id"`
	Username       string      `json:"username"`
	Balance        json.Number `json:"balance"`
	TasksCompleted int         `json:"tasks_completed"`
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

// GET /balance
func (h *RewardsHandler) Balance(w http.ResponseWriter, r *http.Request, id models.Identity) {
	bal, err := h.Balances.BalanceOf(r.Context(), id.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{OK: true, Balance: money(bal)})
}

// GET /tasks
func (h *RewardsHandler) Tasks(w http.ResponseWriter, r *http.Request, id models.Identity) {
	views, err := h.Catalog.TasksFor(r.Context(), id.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	items := make([]taskItem, 0, len(views))
	for _, v := range views {
		items = append(items, taskItem{
			ID:          v.ID,
			Type:        v.Kind,
			Title:       v.Title,
			Description: v.Description,
			Reward:      money(v.RewardAmount),
			ChannelURL:  v.ChannelURL,
			ChannelName: v.ChannelName,
			Completed:   v.Completed,
		})
	}
	writeJSON(w, http.StatusOK, itemsResponse[taskItem]{Items: items})
}

// POST /tasks/complete
func (h *RewardsHandler) CompleteTask(w http.ResponseWriter, r *http.Request, id models.Identity) {
	var req struct {
		TaskID flexID `json:"task_id"`
	}
	if !decodeBody(w, r, h.Validator, services.SchemaCompleteTask, &req) {
		metrics.RecordCompletion(models.TaskKindTelegram, metrics.OutcomeInvalid)
		return
	}
	res, err := h.Completions.Complete(r.Context(), id, string(req.TaskID))
	h.writeCompletion(w, models.TaskKindTelegram, res, err)
}

// POST /ads/complete
func (h *RewardsHandler) CompleteAd(w http.ResponseWriter, r *http.Request, id models.Identity) {
	var req struct {
		BlockID flexID `json:"block_id"`
	}
	if !decodeBody(w, r, h.Validator, services.SchemaCompleteAd, &req) {
		metrics.RecordCompletion(models.TaskKindAd, metrics.OutcomeInvalid)
		return
	}
	res, err := h.Completions.CompleteAd(r.Context(), id, string(req.BlockID))
	h.writeCompletion(w, models.TaskKindAd, res, err)
}

func (h *RewardsHandler) writeCompletion(w http.ResponseWriter, kind string, res services.CompletionResult, err error) {
	switch {
	case err == nil && res.Already:
		metrics.RecordCompletion(kind, metrics.OutcomeAlready)
	case err == nil:
		metrics.RecordCompletion(kind, metrics.OutcomeCredited)
	case errors.Is(err, models.ErrInvalidTask), errors.Is(err, models.ErrMissingParams):
		metrics.RecordCompletion(kind, metrics.OutcomeInvalid)
	default:
		metrics.RecordCompletion(kind, metrics.OutcomeError)
	}
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{OK: true, Balance: money(res.Balance), Already: res.Already})
}

// POST /withdraw
func (h *RewardsHandler) Withdraw(w http.ResponseWriter, r *http.Request, id models.Identity) {
	var req struct {
		Amount  decimal.Decimal `json:"amount"`
		Method  string          `json:"method"`
		Address string          `json:"address"`
	}
	if !decodeBody(w, r, h.Validator, services.SchemaWithdraw, &req) {
		metrics.RecordWithdrawal(metrics.OutcomeInvalid)
		return
	}
	wr, bal, err := h.Withdrawals.Request(r.Context(), id, services.WithdrawalInput{
		Amount:  req.Amount,
		Method:  req.Method,
		Address: req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInsufficientBalance):
			metrics.RecordWithdrawal(metrics.OutcomeInsufficient)
		case errors.Is(err, models.ErrMissingParams):
			metrics.RecordWithdrawal(metrics.OutcomeInvalid)
		default:
			metrics.RecordWithdrawal(metrics.OutcomeError)
		}
		writeError(w, h.Logger, err)
		return
	}
	metrics.RecordWithdrawal(metrics.OutcomeAccepted)
	writeJSON(w, http.StatusOK, withdrawResponse{
		OK:           true,
		Balance:      money(bal),
		WithdrawalID: wr.ID.String(),
		Status:       wr.Status,
	})
}

// GET /profile
func (h *RewardsHandler) Profile(w http.ResponseWriter, r *http.Request, id models.Identity) {
	p, err := h.Catalog.ProfileOf(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	bal, err := h.Balances.BalanceOf(r.Context(), id.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		TelegramID:     p.UserID,
		Username:       p.Username,
		Balance:        money(bal),
		TasksCompleted: p.TasksCompleted,
	})
}

// GET /ledger?limit=n
func (h *RewardsHandler) Ledger(w http.ResponseWriter, r *http.Request, id models.Identity) {
	limit, ok := pageLimit(r, defaultLedgerLimit, maxLedgerLimit)
	if !ok {
		writeErrorCode(w, http.StatusBadRequest, "missing_params")
		return
	}
	entries, err := h.Balances.Entries(r.Context(), id.ID, limit)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	items := make([]ledgerItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ledgerItem{
			ID:        e.ID.String(),
			Amount:    money(e.Amount),
			Reason:    string(e.Reason),
			RefID:     e.RefID,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, itemsResponse[ledgerItem]{Items: items})
}

// decodeBody reads, schema-checks and unmarshals the body into v. It writes
// the 400 itself and reports false on any failure.
func decodeBody(w http.ResponseWriter, r *http.Request, validator BodyValidator, schema string, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "missing_params")
		return false
	}
	if validator != nil {
		if err := validator.Validate(schema, body); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "missing_params")
			return false
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "missing_params")
		return false
	}
	return true
}
