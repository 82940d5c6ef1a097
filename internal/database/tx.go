package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxBeginner abstracts transaction creation so services and tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// maxAttempts bounds how often a transaction is replayed after a
// serialization failure or deadlock.
const maxAttempts = 2

// Runner executes store work under a bounded timeout.
type Runner struct {
	DB      TxBeginner
	Timeout time.Duration
}

// NewRunner returns a Runner; a non-positive timeout falls back to 5s.
func NewRunner(db TxBeginner, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Runner{DB: db, Timeout: timeout}
}

// InTx runs fn inside one transaction and commits it. fn may be invoked
// more than once when Postgres reports a retryable conflict, so it must not
// have side effects outside tx. Errors come back through Classify.
func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = r.once(ctx, fn)
		if err == nil || !IsRetryable(err) {
			break
		}
	}
	return Classify(err)
}

func (r *Runner) once(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Do runs a single non-transactional store call under the same timeout.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	return Classify(fn(ctx))
}
