package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Task kinds. Ad placements live in the same catalog as channel tasks.
const (
	TaskKindTelegram = "telegram"
	TaskKindAd       = "ad"
)

// Task is a catalog row. The core only ever reads it; RewardAmount is the
// sole source of truth for what a completion is worth.
type Task struct {
	ID           string          `json:"id"`
	Kind         string          `json:"type"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	RewardAmount decimal.Decimal `json:"reward"`
	ChannelURL   *string         `json:"channel_url,omitempty"`
	ChannelName  *string         `json:"channel_name,omitempty"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RewardReason maps the task kind to the ledger reason its credit is booked under.
func (t *Task) RewardReason() LedgerReason {
	if t.Kind == TaskKindAd {
		return LedgerReasonAdReward
	}
	return LedgerReasonTaskReward
}
