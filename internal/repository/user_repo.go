package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dianedanzo/bear-app/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const ensureUserSQL = `
	INSERT INTO users (id, username)
	VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE
	SET username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username)
`

// Ensure is the ensure_user procedure outside any ledger write, used by the
// register_user job.
func (r *UserRepo) Ensure(ctx context.Context, id, username string) error {
	_, err := r.pool.Exec(ctx, ensureUserSQL, id, username)
	return err
}

// EnsureTx upserts the user row so ledger rows referencing it can be written in tx.
func (r *UserRepo) EnsureTx(ctx context.Context, tx pgx.Tx, id, username string) error {
	_, err := tx.Exec(ctx, ensureUserSQL, id, username)
	return err
}

// LockTx takes the per-user row lock. Every credit and debit for a user
// acquires it first, so balance checks and appends never interleave.
func (r *UserRepo) LockTx(ctx context.Context, tx pgx.Tx, id string) error {
	var got string
	return tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&got)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var username *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &username, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if username != nil {
		u.Username = *username
	}
	return &u, nil
}
