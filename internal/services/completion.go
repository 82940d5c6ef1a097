package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/database"
	"github.com/dianedanzo/bear-app/internal/ledger"
	"github.com/dianedanzo/bear-app/internal/models"
)

// CompletionResult is the post-transaction balance. Already is set when the
// (user, task) marker existed before this call.
type CompletionResult struct {
	Balance decimal.Decimal
	Already bool
}

// Coordinator credits task rewards at most once per (user, task) pair.
type Coordinator struct {
	Runner *database.Runner
	Users  UserStore
	Tasks  TaskStore
	Ledger ledger.Writer
	Logger *slog.Logger
}

func NewCoordinator(runner *database.Runner, users UserStore, tasks TaskStore, lw ledger.Writer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{Runner: runner, Users: users, Tasks: tasks, Ledger: lw, Logger: logger}
}

// Complete credits the catalog reward for taskID. The marker insert, the
// ledger append and the balance read share one transaction.
func (c *Coordinator) Complete(ctx context.Context, id models.Identity, taskID string) (CompletionResult, error) {
	return c.complete(ctx, id, taskID, "")
}

// CompleteAd is Complete restricted to catalog rows of kind ad.
func (c *Coordinator) CompleteAd(ctx context.Context, id models.Identity, blockID string) (CompletionResult, error) {
	return c.complete(ctx, id, blockID, models.TaskKindAd)
}

func (c *Coordinator) complete(ctx context.Context, id models.Identity, taskID, kind string) (CompletionResult, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return CompletionResult{}, models.ErrMissingParams
	}

	var res CompletionResult
	err := c.Runner.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		res = CompletionResult{}
		if err := ensureAndLock(ctx, tx, c.Users, id); err != nil {
			return err
		}

		task, err := c.Tasks.GetByIDTx(ctx, tx, taskID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, models.ErrNotFound) {
				return models.ErrInvalidTask
			}
			return err
		}
		if !task.Active || (kind != "" && task.Kind != kind) {
			return models.ErrInvalidTask
		}

		inserted, err := c.Tasks.InsertCompletionTx(ctx, tx, id.ID, taskID)
		if err != nil {
			return err
		}
		if inserted {
			ref := taskID
			if err := c.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
				ID:     uuid.New(),
				UserID: id.ID,
				Amount: task.RewardAmount,
				Reason: task.RewardReason(),
				RefID:  &ref,
			}); err != nil {
				return err
			}
		}
		res.Already = !inserted

		res.Balance, err = c.Ledger.SumTx(ctx, tx, id.ID)
		return err
	})
	if err != nil {
		return CompletionResult{}, err
	}

	if res.Already {
		c.Logger.Debug("task already completed", "user_id", id.ID, "task_id", taskID)
	} else {
		c.Logger.Info("task credited", "user_id", id.ID, "task_id", taskID, "balance", res.Balance.String())
	}
	return res, nil
}
