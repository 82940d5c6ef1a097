package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `id, kind, title, description, reward::text, channel_url, channel_name, active, created_at`

// GetByIDTx re-reads the catalog row inside the crediting transaction; the
// reward used for a credit always comes from here.
func (r *TaskRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id string) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// ListActive returns the active catalog, newest first.
func (r *TaskRepo) ListActive(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE active ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// InsertCompletionTx adds the (user, task) marker. It reports false when the
// marker already existed; the primary key makes this an atomic add-once.
func (r *TaskRepo) InsertCompletionTx(ctx context.Context, tx pgx.Tx, userID, taskID string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO task_completions (user_id, task_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, task_id) DO NOTHING
	`, userID, taskID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompletedTaskIDs returns the set of task ids the user has been credited for.
func (r *TaskRepo) CompletedTaskIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT task_id FROM task_completions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	done := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}
	return done, rows.Err()
}

func (r *TaskRepo) CountCompletions(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM task_completions WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	var reward string
	var description *string
	if err := row.Scan(&t.ID, &t.Kind, &t.Title, &description, &reward, &t.ChannelURL, &t.ChannelName, &t.Active, &t.CreatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(reward)
	if err != nil {
		return nil, err
	}
	t.RewardAmount = amount
	if description != nil {
		t.Description = *description
	}
	return &t, nil
}
