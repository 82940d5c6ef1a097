package ledger

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/database"
	"github.com/dianedanzo/bear-app/internal/metrics"
	"github.com/dianedanzo/bear-app/internal/models"
)

// Reader is the read side of the ledger table.
type Reader interface {
	Aggregate(ctx context.Context, userID string) (decimal.Decimal, error)
	Sum(ctx context.Context, userID string) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)
}

// Writer appends inside a caller-owned transaction only, so every append
// shares an atomic scope with the check that justified it.
type Writer interface {
	AppendTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	SumTx(ctx context.Context, tx pgx.Tx, userID string) (decimal.Decimal, error)
}

type Service interface {
	Writer
	BalanceOf(ctx context.Context, userID string) (decimal.Decimal, error)
	Entries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error)
}

type service struct {
	Writer
	reader Reader
	runner *database.Runner
	log    *slog.Logger
}

func NewService(repo interface {
	Reader
	Writer
}, runner *database.Runner, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{Writer: repo, reader: repo, runner: runner, log: log}
}

var _ Service = (*service)(nil)

// BalanceOf tries the aggregate procedure first and falls back to direct
// summation, which is the ground truth.
func (s *service) BalanceOf(ctx context.Context, userID string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		bal, err = s.reader.Aggregate(ctx, userID)
		return err
	})
	if err == nil {
		return bal, nil
	}
	s.log.Warn("balance aggregate failed, summing ledger", "user_id", userID, "error", err)
	metrics.RecordBalanceFallback()

	err = s.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		bal, err = s.reader.Sum(ctx, userID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return bal, nil
}

func (s *service) Entries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	var list []*models.LedgerEntry
	err := s.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		list, err = s.reader.ListByUser(ctx, userID, limit)
		return err
	})
	return list, err
}
