// Package storetest provides a testify mock of store.TaskStore.
package storetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/store"
)

type MockTaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*MockTaskStore)(nil)

func (m *MockTaskStore) List(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskStore) Create(ctx context.Context, d model.Draft) (*model.Task, error) {
	args := m.Called(ctx, d)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskStore) Update(ctx context.Context, id model.TaskID, p model.Patch) (*model.Task, error) {
	args := m.Called(ctx, id, p)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskStore) Delete(ctx context.Context, id model.TaskID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// NetworkError builds the error the HTTP client returns when no response
// arrives.
func NetworkError(op string) error {
	return &store.Error{Op: op, Kind: store.ErrNetwork}
}

func StatusError(op string, kind error, status int) error {
	return &store.Error{Op: op, Kind: kind, Status: status}
}
