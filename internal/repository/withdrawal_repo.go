package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/models"
)

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

// CreateTx inserts a withdrawal request inside the given transaction.
func (r *WithdrawalRepo) CreateTx(ctx context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO withdrawal_requests (id, user_id, amount, method, address, status)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		RETURNING created_at, updated_at
	`, w.ID, w.UserID, w.Amount.String(), w.Method, w.Address, w.Status).Scan(&w.CreatedAt, &w.UpdatedAt)
}

const withdrawalColumns = `id, user_id, amount::text, method, address, status, created_at, updated_at`

// GetForUpdateTx loads and row-locks a request for settlement.
func (r *WithdrawalRepo) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return scanWithdrawal(tx.QueryRow(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE
	`, id))
}

// ListByStatus returns requests in status, oldest first.
func (r *WithdrawalRepo) ListByStatus(ctx context.Context, status string, limit int) ([]*models.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawal_requests
		WHERE status = $1 ORDER BY created_at, id LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpdateStatusTx sets status and returns the new updated_at.
func (r *WithdrawalRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (time.Time, error) {
	var updated time.Time
	err := tx.QueryRow(ctx, `
		UPDATE withdrawal_requests SET status = $2, updated_at = now() WHERE id = $1
		RETURNING updated_at
	`, id, status).Scan(&updated)
	return updated, err
}

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	var amount string
	if err := row.Scan(&w.ID, &w.UserID, &amount, &w.Method, &w.Address, &w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if w.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &w, nil
}
