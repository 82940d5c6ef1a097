package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dianedanzo/bear-app/internal/models"
)

// ListByStatus returns up to limit requests in status, oldest first, so
// operators work the queue in arrival order.
func (s *WithdrawalService) ListByStatus(ctx context.Context, status string, limit int) ([]*models.WithdrawalRequest, error) {
	switch status {
	case models.WithdrawalStatusPending, models.WithdrawalStatusCompleted, models.WithdrawalStatusFailed:
	default:
		return nil, models.ErrMissingParams
	}
	var out []*models.WithdrawalRequest
	err := s.Runner.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.Withdrawals.ListByStatus(ctx, status, limit)
		return err
	})
	return out, err
}

// Settle moves a pending request to completed or failed. A failed payout is
// corrected by a positive adjustment entry in the same transaction; the
// original debit is never touched.
func (s *WithdrawalService) Settle(ctx context.Context, requestID uuid.UUID, status string) (*models.WithdrawalRequest, error) {
	if status != models.WithdrawalStatusCompleted && status != models.WithdrawalStatusFailed {
		return nil, models.ErrInvalidTransition
	}

	var req *models.WithdrawalRequest
	err := s.Runner.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		req, err = s.Withdrawals.GetForUpdateTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.WithdrawalStatusPending {
			return models.ErrInvalidTransition
		}
		if err := s.Users.LockTx(ctx, tx, req.UserID); err != nil {
			return err
		}
		updated, err := s.Withdrawals.UpdateStatusTx(ctx, tx, req.ID, status)
		if err != nil {
			return err
		}
		req.Status, req.UpdatedAt = status, updated

		if status == models.WithdrawalStatusFailed {
			ref := req.ID.String()
			return s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
				ID:     uuid.New(),
				UserID: req.UserID,
				Amount: req.Amount,
				Reason: models.LedgerReasonAdjustment,
				RefID:  &ref,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("withdrawal settled", "withdrawal_id", req.ID, "user_id", req.UserID, "status", status)
	return req, nil
}
