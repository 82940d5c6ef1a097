package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
)

// RegisterUserArgs asks a worker to upsert a user who opened the bot.
type RegisterUserArgs struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (RegisterUserArgs) Kind() string { return "register_user" }

// InsertOpts collapses repeated /start presses into one job.
func (RegisterUserArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 5,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByPeriod: 10 * time.Minute},
	}
}

// InsertRegisterUserFunc enqueues a register_user job.
type InsertRegisterUserFunc func(ctx context.Context, args RegisterUserArgs) error

// UserEnsurer is the ensure_user procedure.
type UserEnsurer interface {
	Ensure(ctx context.Context, id, username string) error
}

type RegisterUserWorker struct {
	river.WorkerDefaults[RegisterUserArgs]
	users UserEnsurer
}

func NewRegisterUserWorker(users UserEnsurer) *RegisterUserWorker {
	return &RegisterUserWorker{users: users}
}

func (w *RegisterUserWorker) Timeout(*river.Job[RegisterUserArgs]) time.Duration {
	return 10 * time.Second
}

func (w *RegisterUserWorker) Work(ctx context.Context, job *river.Job[RegisterUserArgs]) error {
	args := job.Args
	if args.UserID == "" {
		return river.JobCancel(fmt.Errorf("register_user job %d has no user id", job.ID))
	}
	if err := w.users.Ensure(ctx, args.UserID, args.Username); err != nil {
		return fmt.Errorf("ensure user %s: %w", args.UserID, err)
	}
	return nil
}
