package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/database"
	"github.com/dianedanzo/bear-app/internal/ledger"
	"github.com/dianedanzo/bear-app/internal/models"
)

// WithdrawalInput is a cash-out request as submitted by the user.
type WithdrawalInput struct {
	Amount  decimal.Decimal
	Method  string
	Address string
}

// WithdrawalService records withdrawal intents and their immediate debits,
// and applies operator settlement.
type WithdrawalService struct {
	Runner      *database.Runner
	Users       UserStore
	Withdrawals WithdrawalStore
	Ledger      ledger.Writer
	Logger      *slog.Logger
}

func NewWithdrawalService(runner *database.Runner, users UserStore, withdrawals WithdrawalStore, lw ledger.Writer, logger *slog.Logger) *WithdrawalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WithdrawalService{Runner: runner, Users: users, Withdrawals: withdrawals, Ledger: lw, Logger: logger}
}

// Request debits amount from the caller's derived balance and records a
// pending request. It returns the request and the balance after the debit.
func (s *WithdrawalService) Request(ctx context.Context, id models.Identity, in WithdrawalInput) (*models.WithdrawalRequest, decimal.Decimal, error) {
	in.Method = strings.TrimSpace(in.Method)
	in.Address = strings.TrimSpace(in.Address)
	if !in.Amount.IsPositive() || !models.FitsScale(in.Amount) || in.Method == "" || in.Address == "" {
		return nil, decimal.Zero, models.ErrMissingParams
	}

	var (
		req     *models.WithdrawalRequest
		balance decimal.Decimal
	)
	err := s.Runner.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := ensureAndLock(ctx, tx, s.Users, id); err != nil {
			return err
		}
		current, err := s.Ledger.SumTx(ctx, tx, id.ID)
		if err != nil {
			return err
		}
		if in.Amount.GreaterThan(current) {
			return models.ErrInsufficientBalance
		}

		req = &models.WithdrawalRequest{
			ID:      uuid.New(),
			UserID:  id.ID,
			Amount:  in.Amount,
			Method:  in.Method,
			Address: in.Address,
			Status:  models.WithdrawalStatusPending,
		}
		if err := s.Withdrawals.CreateTx(ctx, tx, req); err != nil {
			return err
		}
		ref := req.ID.String()
		if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
			ID:     uuid.New(),
			UserID: id.ID,
			Amount: in.Amount.Neg(),
			Reason: models.LedgerReasonWithdrawal,
			RefID:  &ref,
		}); err != nil {
			return err
		}
		balance, err = s.Ledger.SumTx(ctx, tx, id.ID)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.Logger.Info("withdrawal requested",
		"user_id", id.ID, "withdrawal_id", req.ID, "amount", in.Amount.String(), "method", in.Method)
	return req, balance, nil
}
