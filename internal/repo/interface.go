package repo

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
	ErrorInvalid  = errors.New("invalid task")
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id model.TaskID) (model.Task, error)
	List(ctx context.Context) ([]model.Task, error)
	Update(ctx context.Context, id model.TaskID, p model.Patch) (model.Task, error)
	Delete(ctx context.Context, id model.TaskID) error
	SaveIdempotencyKey(ctx context.Context, key string, id model.TaskID) error
	GetIdempotencyKey(ctx context.Context, key string) (model.TaskID, error)
}
