// Package shell is the interactive terminal front end: it renders the task
// collection and the open edit session and turns typed commands into
// controller and session calls.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/i18n"
	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/session"
	"github.com/BuzzLyutic/taskboard/internal/tasklist"
	"github.com/BuzzLyutic/taskboard/internal/worker"
)

const usage = `commands:
  ls                 show the tasks
  refresh            reload the tasks from the store
  new                start a new task
  edit ID            edit an existing task
  show               show the open draft
  title TEXT         set the draft title
  desc TEXT          set the draft description
  due YYYY-MM-DD|-   set or clear the draft due date
  toggle             flip the completed flag of the edited task
  save               save the draft
  cancel             discard the draft
  rm ID              delete a task
  wait               wait for running operations
  quit               leave the shell`

// SyncWriter serializes writes from the shell loop, the worker pool and the
// prompter.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type Shell struct {
	list   *tasklist.Controller
	form   *session.Session
	pool   *worker.Pool
	prompt *Prompter
	out    io.Writer
	msgs   i18n.Catalog
	logger *zap.Logger
}

// New wires the shell. out should be the writer the prompter uses, wrapped
// in a SyncWriter.
func New(list *tasklist.Controller, form *session.Session, pool *worker.Pool, prompt *Prompter, out io.Writer, msgs i18n.Catalog, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{
		list:   list,
		form:   form,
		pool:   pool,
		prompt: prompt,
		out:    out,
		msgs:   msgs,
		logger: logger.Named("shell"),
	}
}

// Run mounts the collection and reads commands until quit or end of input.
// It returns once every started operation has finished.
func (s *Shell) Run(ctx context.Context) error {
	unsubscribe := s.list.Subscribe(s.onChange)
	defer unsubscribe()

	s.submit("mount", func(ctx context.Context) error {
		return s.list.Mount(ctx)
	})

	defer s.pool.Wait()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.write(func(w io.Writer) { fmt.Fprint(w, s.promptText()) })
		line, err := s.prompt.ReadLine()
		if errors.Is(err, io.EOF) {
			s.write(func(w io.Writer) { fmt.Fprintln(w) })
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := s.exec(ctx, line)
		if err != nil {
			s.write(func(w io.Writer) { fmt.Fprintln(w, err) })
		}
		if quit {
			return nil
		}
	}
}

func (s *Shell) exec(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return false, nil

	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		s.write(func(w io.Writer) { fmt.Fprintln(w, usage) })

	case "ls", "list":
		st := s.list.State()
		s.write(func(w io.Writer) { RenderState(w, st, s.msgs) })

	case "refresh":
		s.submit("refresh", s.list.Refresh)

	case "new":
		if err := s.form.Open(nil); err != nil {
			return false, err
		}
		s.showDraft()

	case "edit":
		if arg == "" {
			return false, errors.New("usage: edit ID")
		}
		task, ok := s.list.Find(model.TaskID(arg))
		if !ok {
			return false, errors.New(s.msgs.NotFound)
		}
		if err := s.form.Open(&task); err != nil {
			return false, err
		}
		s.showDraft()

	case "show":
		s.showDraft()

	case "title":
		return false, s.form.SetTitle(arg)

	case "desc", "description":
		return false, s.form.SetDescription(arg)

	case "due":
		if arg == "" || arg == "-" {
			return false, s.form.SetDueDate(nil)
		}
		d, err := model.ParseDate(arg)
		if err != nil {
			return false, err
		}
		return false, s.form.SetDueDate(&d)

	case "toggle":
		st := s.form.State()
		if st.Phase == session.PhaseIdle {
			return false, session.ErrNotEditing
		}
		if st.IsNew() {
			return false, session.ErrNotPersisted
		}
		completed := !st.Draft.Completed
		s.submit("toggle", func(ctx context.Context) error {
			if err := s.form.ToggleCompleted(ctx, completed); err != nil {
				s.write(func(w io.Writer) { fmt.Fprintln(w, "! "+s.msgs.ToggleFailed) })
				return err
			}
			return nil
		})

	case "save":
		s.write(func(w io.Writer) { fmt.Fprintln(w, s.msgs.Saving) })
		s.submit("save", s.save)

	case "cancel":
		s.form.Cancel()

	case "rm", "delete":
		if arg == "" {
			return false, errors.New("usage: rm ID")
		}
		s.remove(model.TaskID(arg))

	case "wait":
		s.pool.Wait()

	default:
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}
	return false, nil
}

func (s *Shell) save(ctx context.Context) error {
	err := s.form.Submit(ctx)
	switch {
	case err == nil:
		s.write(func(w io.Writer) { fmt.Fprintln(w, s.msgs.Saved) })
	case errors.Is(err, session.ErrInvalidDraft):
		s.write(func(w io.Writer) { fmt.Fprintln(w, "! "+s.msgs.TitleRequired) })
	case errors.Is(err, session.ErrSubmitting):
		// первое сохранение ещё идёт
		s.write(func(w io.Writer) { fmt.Fprintln(w, s.msgs.Saving) })
		return nil
	default:
		st := s.form.State()
		msg := st.Message
		if msg == "" {
			msg = s.msgs.SaveFailed
		}
		s.write(func(w io.Writer) { fmt.Fprintln(w, "! "+msg) })
	}
	return err
}

// remove runs the delete on the pool but keeps the loop waiting, the
// confirmation reads from the same input.
func (s *Shell) remove(id model.TaskID) {
	done := make(chan struct{})
	ok := s.submit("delete", func(ctx context.Context) error {
		defer close(done)
		deleted, err := s.list.Delete(ctx, id)
		if deleted {
			s.write(func(w io.Writer) { fmt.Fprintln(w, s.msgs.Deleted) })
		}
		return err
	})
	if ok {
		<-done
	}
}

func (s *Shell) submit(name string, run func(ctx context.Context) error) bool {
	if err := s.pool.Submit(name, run); err != nil {
		s.logger.Warn("failed to submit job", zap.String("job", name), zap.Error(err))
		s.write(func(w io.Writer) { fmt.Fprintln(w, err) })
		return false
	}
	return true
}

func (s *Shell) onChange(st tasklist.State) {
	if st.Phase == tasklist.PhaseLoading {
		return
	}
	s.write(func(w io.Writer) {
		fmt.Fprintln(w)
		RenderState(w, st, s.msgs)
	})
}

func (s *Shell) showDraft() {
	st := s.form.State()
	s.write(func(w io.Writer) { RenderDraft(w, st, s.msgs) })
}

func (s *Shell) promptText() string {
	var b strings.Builder
	if n := s.pool.Pending(); n > 0 {
		fmt.Fprintf(&b, "[%d…] ", n)
	}
	b.WriteString("taskboard")
	if st := s.form.State(); st.Phase != session.PhaseIdle {
		if st.IsNew() {
			b.WriteString(" (new)")
		} else {
			fmt.Fprintf(&b, " (%s)", st.TaskID)
		}
		if st.Dirty {
			b.WriteString("*")
		}
	}
	b.WriteString("> ")
	return b.String()
}

// write renders into a buffer first so one block reaches out in one Write.
func (s *Shell) write(fn func(w io.Writer)) {
	var buf bytes.Buffer
	fn(&buf)
	if _, err := s.out.Write(buf.Bytes()); err != nil {
		s.logger.Debug("failed to write output", zap.Error(err))
	}
}
