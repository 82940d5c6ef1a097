package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places the store keeps for amounts.
const AmountScale = 6

// FitsScale reports whether d can be stored without rounding.
func FitsScale(d decimal.Decimal) bool {
	return d.Round(AmountScale).Equal(d)
}

// LedgerReason enumerates why a balance moved.
type LedgerReason string

const (
	LedgerReasonTaskReward LedgerReason = "task_reward"
	LedgerReasonAdReward   LedgerReason = "ad_reward"
	LedgerReasonWithdrawal LedgerReason = "withdrawal"
	LedgerReasonAdjustment LedgerReason = "adjustment"
)

// Valid reports whether r is one of the known reasons.
func (r LedgerReason) Valid() bool {
	switch r {
	case LedgerReasonTaskReward, LedgerReasonAdReward, LedgerReasonWithdrawal, LedgerReasonAdjustment:
		return true
	}
	return false
}

// LedgerEntry is one immutable balance-affecting event. Amount is signed:
// rewards and adjustments are positive, withdrawals negative.
type LedgerEntry struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    LedgerReason    `json:"reason"`
	RefID     *string         `json:"ref_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SumAmounts is the ground-truth balance of a set of entries.
func SumAmounts(entries []*LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
