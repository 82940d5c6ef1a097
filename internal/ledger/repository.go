package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendTx inserts one immutable ledger row inside the caller's transaction.
// The partial unique index on (user_id, ref_id) for reward reasons makes a
// duplicate credit fail here even if the completion marker were bypassed.
func (r *Repository) AppendTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO ledger (id, user_id, amount, reason, ref_id)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING created_at
	`, e.ID, e.UserID, e.Amount.String(), string(e.Reason), e.RefID).Scan(&e.CreatedAt)
}

// SumTx is the ground-truth balance as seen from inside tx.
func (r *Repository) SumTx(ctx context.Context, tx pgx.Tx, userID string) (decimal.Decimal, error) {
	return sum(ctx, tx, userID)
}

// Sum is the ground-truth balance: a direct summation over the ledger.
func (r *Repository) Sum(ctx context.Context, userID string) (decimal.Decimal, error) {
	return sum(ctx, r.pool, userID)
}

// Aggregate calls the get_balance procedure, which may be backed by a
// materialised total. It is an optimisation only.
func (r *Repository) Aggregate(ctx context.Context, userID string) (decimal.Decimal, error) {
	var s string
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(get_balance($1), 0)::text`, userID).Scan(&s); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount::text, reason, ref_id, created_at
		FROM ledger WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var amount, reason string
		if err := rows.Scan(&e.ID, &e.UserID, &amount, &reason, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		e.Reason = models.LedgerReason(reason)
		list = append(list, &e)
	}
	return list, rows.Err()
}

func sum(ctx context.Context, q querier, userID string) (decimal.Decimal, error) {
	var s string
	if err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM ledger WHERE user_id = $1
	`, userID).Scan(&s); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}
