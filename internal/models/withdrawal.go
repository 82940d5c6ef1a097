package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Withdrawal status enums.
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusFailed    = "failed"
)

// WithdrawalRequest records a cash-out intent. The debit itself is the
// negative ledger entry written in the same transaction; settlement only
// ever changes Status.
type WithdrawalRequest struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Address   string          `json:"address"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
