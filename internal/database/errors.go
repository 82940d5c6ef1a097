package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dianedanzo/bear-app/internal/models"
)

// Postgres SQLSTATE codes the services react to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsRetryable reports whether a transaction failed only because of a
// concurrent writer and may be re-run from the start.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// Classify maps a driver error to the domain taxonomy. Domain errors pass
// through untouched; pgx.ErrNoRows becomes models.ErrNotFound.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInvalidTask),
		errors.Is(err, models.ErrMissingParams),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrStore),
		errors.Is(err, models.ErrStoreTimeout):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return models.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), isQueryCanceled(err), pgconn.Timeout(err):
		return fmt.Errorf("%w: %v", models.ErrStoreTimeout, err)
	default:
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}
}

func isQueryCanceled(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeQueryCanceled
}
