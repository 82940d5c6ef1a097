package services

import (
	"context"
	"errors"

	"github.com/dianedanzo/bear-app/internal/database"
	"github.com/dianedanzo/bear-app/internal/models"
)

// CatalogReader is the read side of the task catalog and completion markers.
type CatalogReader interface {
	ListActive(ctx context.Context) ([]*models.Task, error)
	CompletedTaskIDs(ctx context.Context, userID string) (map[string]bool, error)
	CountCompletions(ctx context.Context, userID string) (int, error)
}

// UserReader loads a persisted user row.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TaskView is a catalog row annotated for one caller.
type TaskView struct {
	*models.Task
	Completed bool
}

// Profile is the caller's summary. Username falls back to the display name
// when the user row does not exist yet.
type Profile struct {
	UserID         string
	Username       string
	TasksCompleted int
}

// Catalog serves read-only views; every call runs under the store timeout.
type Catalog struct {
	Runner *database.Runner
	Tasks  CatalogReader
	Users  UserReader
}

func NewCatalog(runner *database.Runner, tasks CatalogReader, users UserReader) *Catalog {
	return &Catalog{Runner: runner, Tasks: tasks, Users: users}
}

// TasksFor lists active tasks with the caller's completion flag.
func (c *Catalog) TasksFor(ctx context.Context, userID string) ([]TaskView, error) {
	var (
		tasks []*models.Task
		done  map[string]bool
	)
	err := c.Runner.Do(ctx, func(ctx context.Context) error {
		var err error
		if tasks, err = c.Tasks.ListActive(ctx); err != nil {
			return err
		}
		done, err = c.Tasks.CompletedTaskIDs(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{Task: t, Completed: done[t.ID]})
	}
	return views, nil
}

// ProfileOf summarises the caller.
func (c *Catalog) ProfileOf(ctx context.Context, id models.Identity) (Profile, error) {
	p := Profile{UserID: id.ID, Username: id.DisplayName}
	err := c.Runner.Do(ctx, func(ctx context.Context) error {
		u, err := c.Users.GetByID(ctx, id.ID)
		switch {
		case err == nil:
			if u.Username != "" {
				p.Username = u.Username
			}
		case !errors.Is(database.Classify(err), models.ErrNotFound):
			return err
		}
		p.TasksCompleted, err = c.Tasks.CountCompletions(ctx, id.ID)
		return err
	})
	return p, err
}
