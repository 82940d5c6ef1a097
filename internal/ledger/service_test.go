package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianedanzo/bear-app/internal/database"
	"github.com/dianedanzo/bear-app/internal/models"
)

type fakeRepo struct {
	entries      []*models.LedgerEntry
	aggregateErr error
	sumErr       error
	aggregate    *decimal.Decimal
	sumCalls     int
}

func (f *fakeRepo) AppendTx(_ context.Context, _ pgx.Tx, e *models.LedgerEntry) error {
	cp := *e
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeRepo) SumTx(ctx context.Context, _ pgx.Tx, userID string) (decimal.Decimal, error) {
	return f.Sum(ctx, userID)
}

func (f *fakeRepo) Sum(_ context.Context, userID string) (decimal.Decimal, error) {
	f.sumCalls++
	if f.sumErr != nil {
		return decimal.Zero, f.sumErr
	}
	var mine []*models.LedgerEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	return models.SumAmounts(mine), nil
}

func (f *fakeRepo) Aggregate(ctx context.Context, userID string) (decimal.Decimal, error) {
	if f.aggregateErr != nil {
		return decimal.Zero, f.aggregateErr
	}
	if f.aggregate != nil {
		return *f.aggregate, nil
	}
	return f.Sum(ctx, userID)
}

func (f *fakeRepo) ListByUser(_ context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	var out []*models.LedgerEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func entry(user, amount string, reason models.LedgerReason) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:     uuid.New(),
		UserID: user,
		Amount: decimal.RequireFromString(amount),
		Reason: reason,
	}
}

func newTestService(repo *fakeRepo) Service {
	return NewService(repo, database.NewRunner(nil, time.Second), nil)
}

func TestBalanceOf_UsesAggregate(t *testing.T) {
	agg := decimal.RequireFromString("42.5")
	repo := &fakeRepo{aggregate: &agg}
	svc := newTestService(repo)

	bal, err := svc.BalanceOf(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, bal.Equal(agg))
	assert.Equal(t, 0, repo.sumCalls)
}

func TestBalanceOf_FallsBackToSum(t *testing.T) {
	repo := &fakeRepo{aggregateErr: errors.New("function get_balance does not exist")}
	ctx := context.Background()
	require.NoError(t, repo.AppendTx(ctx, nil, entry("1", "10", models.LedgerReasonTaskReward)))
	require.NoError(t, repo.AppendTx(ctx, nil, entry("1", "0.25", models.LedgerReasonAdReward)))
	require.NoError(t, repo.AppendTx(ctx, nil, entry("1", "-3", models.LedgerReasonWithdrawal)))
	require.NoError(t, repo.AppendTx(ctx, nil, entry("2", "99", models.LedgerReasonTaskReward)))

	bal, err := newTestService(repo).BalanceOf(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "7.25", bal.String())
	assert.Equal(t, 1, repo.sumCalls)
}

func TestBalanceOf_NewUserIsZero(t *testing.T) {
	bal, err := newTestService(&fakeRepo{}).BalanceOf(context.Background(), "404")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestBalanceOf_BothPathsFail(t *testing.T) {
	repo := &fakeRepo{
		aggregateErr: errors.New("boom"),
		sumErr:       errors.New("connection refused"),
	}
	_, err := newTestService(repo).BalanceOf(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStore)
}

func TestEntries_NewestFirstWithLimit(t *testing.T) {
	repo := &fakeRepo{}
	ctx := context.Background()
	for _, amt := range []string{"1", "2", "3"} {
		require.NoError(t, repo.AppendTx(ctx, nil, entry("1", amt, models.LedgerReasonTaskReward)))
	}

	list, err := newTestService(repo).Entries(ctx, "1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "3", list[0].Amount.String())
	assert.Equal(t, "2", list[1].Amount.String())
}
