package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

// FieldError describes which input was rejected.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

type TaskService struct {
	repo repo.TaskRepository
}

func NewTaskService(repo repo.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) Create(ctx context.Context, d model.Draft, idempKey string) (model.Task, error) {
	if model.Blank(d.Title) { // Валидация до обращения к хранилищу
		return model.Task{}, &FieldError{Field: "title", Message: "The title field is required."}
	}

	if idempKey != "" { // Обеспечение идемпотентности - повторный запрос с тем же ключом вернет ту же задачу
		if existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil {
			return s.repo.Get(ctx, existingID)
		}
	}

	resource, err := s.repo.Create(ctx, model.Task{
		Title:       d.Title,
		Description: d.Description,
		DueDate:     d.DueDate,
	})
	if err != nil {
		return resource, s.mapError(err)
	}

	if idempKey != "" {
		// ключ не критичен, задача уже создана
		_ = s.repo.SaveIdempotencyKey(ctx, idempKey, resource.ID)
	}

	return resource, nil
}

func (s *TaskService) Get(ctx context.Context, id model.TaskID) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Update applies a partial update. An empty patch returns the stored task
// unchanged.
func (s *TaskService) Update(ctx context.Context, id model.TaskID, p model.Patch) (model.Task, error) {
	if p.Title != nil && model.Blank(*p.Title) {
		return model.Task{}, &FieldError{Field: "title", Message: "The title field is required."}
	}
	if p.IsEmpty() {
		return s.repo.Get(ctx, id)
	}
	t, err := s.repo.Update(ctx, id, p)
	return t, s.mapError(err)
}

func (s *TaskService) Delete(ctx context.Context, id model.TaskID) error {
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) mapError(err error) error {
	if errors.Is(err, repo.ErrorInvalid) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
