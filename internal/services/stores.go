package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dianedanzo/bear-app/internal/models"
)

// UserStore is the minimal user repository interface for ledger writers.
type UserStore interface {
	EnsureTx(ctx context.Context, tx pgx.Tx, id, username string) error
	LockTx(ctx context.Context, tx pgx.Tx, id string) error
}

// TaskStore is the minimal catalog and completion-marker interface.
type TaskStore interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id string) (*models.Task, error)
	InsertCompletionTx(ctx context.Context, tx pgx.Tx, userID, taskID string) (bool, error)
}

// WithdrawalStore is the minimal withdrawal repository interface.
type WithdrawalStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (time.Time, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*models.WithdrawalRequest, error)
}

// ensureAndLock upserts the caller and takes the per-user row lock.
func ensureAndLock(ctx context.Context, tx pgx.Tx, users UserStore, id models.Identity) error {
	if err := users.EnsureTx(ctx, tx, id.ID, id.DisplayName); err != nil {
		return err
	}
	return users.LockTx(ctx, tx, id.ID)
}
