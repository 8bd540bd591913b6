package service

import (
	"context"

	"github.com/TWRT/task-manager/internal/models"
	"github.com/TWRT/task-manager/internal/repository"
)

// TaskStore persists whole task documents. LoadTask and DeleteTask report a
// missing task with repository.ErrNotFound; SaveTask reports a stale version
// with repository.ErrVersionConflict.
type TaskStore interface {
	LoadTask(ctx context.Context, id string) (*models.Task, error)
	SaveTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter repository.TaskFilter) ([]models.Task, error)
}

type UserDirectory interface {
	UserExists(ctx context.Context, id string) (bool, error)
	GetUsers(ctx context.Context, ids []string) (map[string]models.User, error)
}

type UserLister interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}
