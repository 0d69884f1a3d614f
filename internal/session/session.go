// Package session implements the create/edit form of a single task.
package session

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
	PhaseIdle Phase = iota
	PhaseEditing
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEditing:
		return "editing"
	case PhaseSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	ErrAlreadyOpen  = errors.New("an edit session is already open")
	ErrNotEditing   = errors.New("no draft is being edited")
	ErrSubmitting   = errors.New("a submit is already in progress")
	ErrInvalidDraft = errors.New("draft is not valid")
	ErrSaveFailed   = errors.New("save failed")
	ErrNotPersisted = errors.New("task has not been created yet")
)

// FieldTitle keys the title entry in State.Errors.
const FieldTitle = "title"

// Reconciler receives the outcome of successful store mutations.
type Reconciler interface {
	Apply(ctx context.Context, t *model.Task) error
}

// Draft holds the form values. They stay detached from the backing task
// until a submit succeeds.
type Draft struct {
	Title       string
	Description string
	DueDate     *model.Date
	Completed   bool
}

func (d Draft) equal(o Draft) bool {
	if d.Title != o.Title || d.Description != o.Description || d.Completed != o.Completed {
		return false
	}
	if d.DueDate == nil || o.DueDate == nil {
		return d.DueDate == nil && o.DueDate == nil
	}
	return d.DueDate.Equal(*o.DueDate)
}

type State struct {
	Phase   Phase
	TaskID  model.TaskID
	Draft   Draft
	Errors  map[string]string
	Message string
	Dirty   bool
	Valid   bool
	Pending bool
}

func (s State) IsNew() bool { return s.TaskID.IsZero() }

type Session struct {
	store  store.TaskStore
	rec    Reconciler
	logger *zap.Logger
	msgs   i18n.Catalog

	mu       sync.Mutex
	phase    Phase
	target   *model.Task
	initial  Draft
	draft    Draft
	errors   map[string]string
	message  string
	toggling int
	// gen changes on every Open and reset, in-flight calls compare it
	// before touching the draft.
	gen uint64
}

func New(s store.TaskStore, rec Reconciler, logger *zap.Logger, msgs i18n.Catalog) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if msgs == (i18n.Catalog{}) {
		msgs = i18n.English
	}
	return &Session{
		store:  s,
		rec:    rec,
		logger: logger.Named("session"),
		msgs:   msgs,
		errors: map[string]string{},
	}
}

// Open starts editing task, or a new task when task is nil. Only one draft
// can be open at a time.
func (s *Session) Open(task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseIdle {
		return ErrAlreadyOpen
	}

	var d Draft
	if task != nil {
		t := *task
		s.target = &t
		d = Draft{
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
		}
		if t.DueDate != nil {
			due := *t.DueDate
			d.DueDate = &due
		}
	}

	s.gen++
	s.phase = PhaseEditing
	s.initial = d
	s.draft = d
	s.errors = map[string]string{}
	s.message = ""
	return nil
}

func (s *Session) SetTitle(title string) error {
	return s.edit(func(d *Draft) {
		d.Title = title
		delete(s.errors, FieldTitle)
	})
}

func (s *Session) SetDescription(description string) error {
	return s.edit(func(d *Draft) { d.Description = description })
}

// SetDueDate sets or, with nil, clears the due date.
func (s *Session) SetDueDate(due *model.Date) error {
	return s.edit(func(d *Draft) {
		if due == nil {
			d.DueDate = nil
			return
		}
		v := *due
		d.DueDate = &v
	})
}

func (s *Session) edit(fn func(*Draft)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return ErrNotEditing
	}
	fn(&s.draft)
	return nil
}

// Submit validates the draft and saves it through the store. A blank title
// is rejected locally without a store call. On failure the draft stays open
// with a generic message, the cause is logged.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	switch s.phase {
	case PhaseIdle:
		s.mu.Unlock()
		return ErrNotEditing
	case PhaseSubmitting:
		s.mu.Unlock()
		return ErrSubmitting
	}
	if model.Blank(s.draft.Title) {
		s.errors[FieldTitle] = s.msgs.TitleRequired
		s.message = ""
		s.mu.Unlock()
		return ErrInvalidDraft
	}

	s.phase = PhaseSubmitting
	s.errors = map[string]string{}
	s.message = ""
	gen := s.gen
	draft := s.draft
	var target *model.Task
	if s.target != nil {
		t := *s.target
		target = &t
	}
	s.mu.Unlock()

	var (
		result *model.Task
		err    error
	)
	if target == nil {
		result, err = s.store.Create(ctx, model.Draft{
			Title:       draft.Title,
			Description: draft.Description,
			DueDate:     draft.DueDate,
		})
	} else {
		result, err = s.store.Update(ctx, target.ID, model.Patch{
			Title:       model.Ptr(draft.Title),
			Description: model.Ptr(draft.Description),
			DueDate:     draft.DueDate,
		})
	}

	if err != nil {
		s.logger.Error("failed to save task", zap.Bool("new", target == nil), zap.Error(err))
		s.mu.Lock()
		if s.gen == gen && s.phase == PhaseSubmitting {
			s.phase = PhaseEditing
			s.message = s.msgs.SaveFailed
		}
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	s.mu.Lock()
	if s.gen == gen && s.phase == PhaseSubmitting {
		s.reset()
	}
	s.mu.Unlock()

	s.reconcile(ctx, result)
	return nil
}

// ToggleCompleted flips the completion flag of the backing task right away,
// outside the submit flow. It is not ordered against Submit: whichever store
// response is reconciled last wins.
func (s *Session) ToggleCompleted(ctx context.Context, completed bool) error {
	s.mu.Lock()
	if s.phase == PhaseIdle {
		s.mu.Unlock()
		return ErrNotEditing
	}
	if s.target == nil {
		s.mu.Unlock()
		return ErrNotPersisted
	}
	id := s.target.ID
	gen := s.gen
	s.toggling++
	s.mu.Unlock()

	result, err := s.store.Update(ctx, id, model.Patch{Completed: model.Ptr(completed)})

	s.mu.Lock()
	s.toggling--
	open := s.gen == gen && s.phase != PhaseIdle
	if err != nil {
		if open {
			s.message = s.msgs.ToggleFailed
		}
		s.mu.Unlock()
		s.logger.Error("failed to update task status", zap.String("task_id", id.String()), zap.Error(err))
		return fmt.Errorf("toggle completed: %w", err)
	}
	if open {
		s.draft.Completed = completed
		s.initial.Completed = completed
		if result != nil {
			t := *result
			s.target = &t
		} else {
			s.target.Completed = completed
		}
	}
	s.mu.Unlock()

	s.reconcile(ctx, result)
	return nil
}

// Cancel discards the draft without asking, whatever its state.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	st := State{
		Phase:   s.phase,
		Draft:   s.draft,
		Errors:  errs,
		Message: s.message,
		Dirty:   s.phase != PhaseIdle && !s.draft.equal(s.initial),
		Valid:   !model.Blank(s.draft.Title),
		Pending: s.phase == PhaseSubmitting || s.toggling > 0,
	}
	if s.draft.DueDate != nil {
		due := *s.draft.DueDate
		st.Draft.DueDate = &due
	}
	if s.target != nil {
		st.TaskID = s.target.ID
	}
	return st
}

func (s *Session) reset() {
	s.gen++
	s.phase = PhaseIdle
	s.target = nil
	s.initial = Draft{}
	s.draft = Draft{}
	s.errors = map[string]string{}
	s.message = ""
}

func (s *Session) reconcile(ctx context.Context, t *model.Task) {
	if s.rec == nil {
		return
	}
	if err := s.rec.Apply(ctx, t); err != nil {
		s.logger.Warn("failed to reconcile task list", zap.Error(err))
	}
}
