package store

import (
	"context"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

// TaskStore определяет операции над удалённым хранилищем задач
type TaskStore interface {
	List(ctx context.Context) ([]model.Task, error)
	// Create and Update return a nil task when the store answered without a
	// usable payload.
	Create(ctx context.Context, d model.Draft) (*model.Task, error)
	Update(ctx context.Context, id model.TaskID, p model.Patch) (*model.Task, error)
	Delete(ctx context.Context, id model.TaskID) error
}
