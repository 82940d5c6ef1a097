package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/database"
	"github.com/dianedanzo/bear-app/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory store. Begin takes a store-wide lock held until Commit or
// Rollback, so transactions are serial. Writes go to a private copy of the
// state and are published only on Commit.
// ---------------------------------------------------------------------------

type memState struct {
	users       map[string]string
	tasks       map[string]*models.Task
	completions map[[2]string]bool
	ledger      []*models.LedgerEntry
	withdrawals map[uuid.UUID]*models.WithdrawalRequest
}

func (s *memState) clone() *memState {
	cp := &memState{
		users:       make(map[string]string, len(s.users)),
		tasks:       s.tasks,
		completions: make(map[[2]string]bool, len(s.completions)),
		ledger:      append([]*models.LedgerEntry(nil), s.ledger...),
		withdrawals: make(map[uuid.UUID]*models.WithdrawalRequest, len(s.withdrawals)),
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.completions {
		cp.completions[k] = v
	}
	for k, v := range s.withdrawals {
		w := *v
		cp.withdrawals[k] = &w
	}
	return cp
}

type memStore struct {
	txMu sync.Mutex // serialises transactions
	mu   sync.Mutex // guards state
	st   *memState

	failAppend error
	begins     int
	now        func() time.Time
}

func newMemStore(tasks ...*models.Task) *memStore {
	st := &memState{
		users:       make(map[string]string),
		tasks:       make(map[string]*models.Task),
		completions: make(map[[2]string]bool),
		withdrawals: make(map[uuid.UUID]*models.WithdrawalRequest),
	}
	for _, t := range tasks {
		st.tasks[t.ID] = t
	}
	return &memStore{st: st, now: time.Now}
}

type memTx struct {
	pgx.Tx
	store *memStore
	st    *memState
	done  bool
}

func (m *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	m.txMu.Lock()
	m.mu.Lock()
	m.begins++
	st := m.st.clone()
	m.mu.Unlock()
	return &memTx{store: m, st: st}, nil
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	t.store.st = t.st
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func state(tx pgx.Tx) *memState { return tx.(*memTx).st }

func (m *memStore) runner() *database.Runner {
	return database.NewRunner(m, 2*time.Second)
}

// --- UserStore

func (m *memStore) EnsureTx(_ context.Context, tx pgx.Tx, id, username string) error {
	st := state(tx)
	if _, ok := st.users[id]; !ok || username != "" {
		st.users[id] = username
	}
	return nil
}

func (m *memStore) LockTx(_ context.Context, tx pgx.Tx, id string) error {
	if _, ok := state(tx).users[id]; !ok {
		return pgx.ErrNoRows
	}
	return nil
}

// --- TaskStore

func (m *memStore) GetByIDTx(_ context.Context, tx pgx.Tx, id string) (*models.Task, error) {
	t, ok := state(tx).tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) InsertCompletionTx(_ context.Context, tx pgx.Tx, userID, taskID string) (bool, error) {
	st := state(tx)
	key := [2]string{userID, taskID}
	if st.completions[key] {
		return false, nil
	}
	st.completions[key] = true
	return true, nil
}

// --- ledger.Writer

func (m *memStore) AppendTx(_ context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	if m.failAppend != nil {
		return m.failAppend
	}
	cp := *e
	cp.CreatedAt = time.Now()
	st := state(tx)
	st.ledger = append(st.ledger, &cp)
	return nil
}

func (m *memStore) SumTx(_ context.Context, tx pgx.Tx, userID string) (decimal.Decimal, error) {
	return sumFor(state(tx).ledger, userID), nil
}

// --- WithdrawalStore

func (m *memStore) CreateTx(_ context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error {
	now := m.now()
	w.CreatedAt, w.UpdatedAt = now, now
	cp := *w
	state(tx).withdrawals[w.ID] = &cp
	return nil
}

func (m *memStore) GetForUpdateTx(_ context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	w, ok := state(tx).withdrawals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) UpdateStatusTx(_ context.Context, tx pgx.Tx, id uuid.UUID, status string) (time.Time, error) {
	w, ok := state(tx).withdrawals[id]
	if !ok {
		return time.Time{}, errors.New("withdrawal not found")
	}
	w.Status = status
	w.UpdatedAt = m.now()
	return w.UpdatedAt, nil
}

func (m *memStore) ListByStatus(_ context.Context, status string, limit int) ([]*models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WithdrawalRequest
	for _, w := range m.st.withdrawals {
		if w.Status == status {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- committed-state helpers

func (m *memStore) entries(userID string) []*models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range m.st.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) balance(userID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sumFor(m.st.ledger, userID)
}

func (m *memStore) completed(userID, taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.completions[[2]string{userID, taskID}]
}

func (m *memStore) withdrawalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.withdrawals)
}

func (m *memStore) seed(userID, amount string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.users[userID] = ""
	m.st.ledger = append(m.st.ledger, &models.LedgerEntry{
		ID: uuid.New(), UserID: userID, Amount: decimal.RequireFromString(amount),
		Reason: models.LedgerReasonTaskReward,
	})
}

func sumFor(ledger []*models.LedgerEntry, userID string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range ledger {
		if e.UserID == userID {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func task(id, reward string, active bool) *models.Task {
	return &models.Task{
		ID:           id,
		Kind:         models.TaskKindTelegram,
		Title:        "Join " + id,
		RewardAmount: decimal.RequireFromString(reward),
		Active:       active,
	}
}

func adBlock(id, reward string) *models.Task {
	t := task(id, reward, true)
	t.Kind = models.TaskKindAd
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
