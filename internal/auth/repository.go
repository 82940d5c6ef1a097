package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new operator and returns it.
func (r *Repository) Create(ctx context.Context, email, passwordHash string) (*Operator, error) {
	op := &Operator{ID: uuid.New(), Email: email}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO operators (id, email, password_hash) VALUES ($1, $2, $3)
	`, op.ID, email, passwordHash)
	if err != nil {
		return nil, err
	}
	return op, nil
}

// GetByEmail returns the operator and password hash for login. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Operator, string, error) {
	var op Operator
	var passwordHash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash FROM operators WHERE email = $1
	`, email).Scan(&op.ID, &op.Email, &passwordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &op, passwordHash, nil
}
