// Package tasklist keeps the local copy of the task collection in step with
// the remote store.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/i18n"
	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/store"
)

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the controller. Tasks is a copy and may be kept by
// the caller.
type State struct {
	Phase   Phase
	Tasks   []model.Task
	Message string
	Err     error
}

// Confirmer asks the user before destructive operations.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, message string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// DeletePolicy decides how the collection is reconciled after a delete.
type DeletePolicy string

const (
	DeleteRemoveLocal DeletePolicy = "local"
	DeleteRefresh     DeletePolicy = "refresh"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch DeletePolicy(s) {
	case "", DeleteRemoveLocal:
		return DeleteRemoveLocal, nil
	case DeleteRefresh:
		return DeleteRefresh, nil
	default:
		return "", fmt.Errorf("unknown delete policy %q", s)
	}
}

var ErrClosed = errors.New("controller closed")

type Options struct {
	Messages     i18n.Catalog
	DeletePolicy DeletePolicy
}

type Controller struct {
	store   store.TaskStore
	confirm Confirmer
	logger  *zap.Logger
	msgs    i18n.Catalog
	policy  DeletePolicy

	mu     sync.Mutex
	state  State
	closed bool
	subs   map[int]func(State)
	nextID int
}

func New(s store.TaskStore, confirm Confirmer, logger *zap.Logger, opts Options) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Messages == (i18n.Catalog{}) {
		opts.Messages = i18n.English
	}
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = DeleteRemoveLocal
	}
	return &Controller{
		store:   s,
		confirm: confirm,
		logger:  logger.Named("tasklist"),
		msgs:    opts.Messages,
		policy:  opts.DeletePolicy,
		state:   State{Phase: PhaseLoading, Tasks: []model.Task{}},
		subs:    make(map[int]func(State)),
	}
}

// Mount performs the initial fetch.
func (c *Controller) Mount(ctx context.Context) error {
	return c.Refresh(ctx)
}

// Refresh replaces the collection with the store's list. On failure the
// collection is cleared so stale tasks are not displayed.
func (c *Controller) Refresh(ctx context.Context) error {
	if !c.update(func(st *State) {
		st.Phase = PhaseLoading
		st.Message = ""
		st.Err = nil
	}) {
		return ErrClosed
	}

	tasks, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error("failed to load tasks", zap.Error(err))
		c.update(func(st *State) {
			st.Phase = PhaseError
			st.Tasks = []model.Task{}
			st.Message = c.msgs.ForError(err, c.msgs.LoadFailed)
			st.Err = err
		})
		return err
	}

	c.update(func(st *State) {
		st.Phase = PhaseReady
		st.Tasks = dedupe(tasks)
	})
	return nil
}

// Delete asks for confirmation, deletes the task and reconciles. The returned
// bool reports whether the store call was made and succeeded. A failed
// delete keeps the current tasks.
func (c *Controller) Delete(ctx context.Context, id model.TaskID) (bool, error) {
	if c.confirm != nil {
		ok, err := c.confirm.Confirm(ctx, c.msgs.ConfirmDelete)
		if err != nil {
			return false, fmt.Errorf("confirm delete: %w", err)
		}
		if !ok {
			c.logger.Debug("delete declined", zap.String("task_id", id.String()))
			return false, nil
		}
	}

	if err := c.store.Delete(ctx, id); err != nil {
		c.logger.Error("failed to delete task", zap.String("task_id", id.String()), zap.Error(err))
		c.update(func(st *State) {
			st.Phase = PhaseError
			st.Message = c.msgs.ForError(err, c.msgs.DeleteFailed)
			st.Err = err
		})
		return false, err
	}

	if c.policy == DeleteRefresh {
		return true, c.Refresh(ctx)
	}

	c.update(func(st *State) {
		st.Tasks = remove(st.Tasks, id)
		settle(st)
	})
	return true, nil
}

// Apply merges a store mutation result into the collection: the task replaces
// the entry with the same id, or is appended when new. Without a task the
// whole list is refetched.
func (c *Controller) Apply(ctx context.Context, t *model.Task) error {
	if t == nil {
		return c.Refresh(ctx)
	}

	task := *t
	if !c.update(func(st *State) {
		st.Tasks = upsert(st.Tasks, task)
		settle(st)
	}) {
		return ErrClosed
	}
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) Tasks() []model.Task {
	return c.State().Tasks
}

func (c *Controller) Find(id model.TaskID) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.state.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// Subscribe registers fn to be called after every state change. The returned
// func removes the subscription.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Close detaches the controller. Store results arriving later are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.subs = make(map[int]func(State))
}

// update applies fn under the lock and notifies subscribers outside of it.
func (c *Controller) update(fn func(*State)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	snap := c.snapshot()
	subs := make([]func(State), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
	return true
}

func (c *Controller) snapshot() State {
	st := c.state
	st.Tasks = append([]model.Task(nil), c.state.Tasks...)
	if st.Tasks == nil {
		st.Tasks = []model.Task{}
	}
	return st
}

// settle clears an error banner left by an earlier failure once a store call
// succeeds. A running load keeps its phase.
func settle(st *State) {
	if st.Phase == PhaseLoading {
		return
	}
	st.Phase = PhaseReady
	st.Message = ""
	st.Err = nil
}

func upsert(tasks []model.Task, t model.Task) []model.Task {
	for i := range tasks {
		if tasks[i].ID == t.ID {
			out := append([]model.Task(nil), tasks...)
			out[i] = t
			return out
		}
	}
	return append(append([]model.Task(nil), tasks...), t)
}

func remove(tasks []model.Task, id model.TaskID) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// dedupe keeps the first occurrence of every id.
func dedupe(tasks []model.Task) []model.Task {
	seen := make(map[model.TaskID]struct{}, len(tasks))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
