package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/session"
	"github.com/BuzzLyutic/taskboard/internal/shell"
)

// lastResult remembers the task a submit produced.
type lastResult struct {
	mu   sync.Mutex
	task *model.Task
}

func (r *lastResult) Apply(ctx context.Context, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.task = t
	return nil
}

func addCmd(opts *rootOptions) *cobra.Command {
	var (
		description string
		due         string
	)

	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Create a task",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			result := &lastResult{}
			form := session.New(a.client, result, a.logger, a.msgs)
			if err := form.Open(nil); err != nil {
				return err
			}
			if err := form.SetTitle(strings.Join(args, " ")); err != nil {
				return err
			}
			if err := form.SetDescription(description); err != nil {
				return err
			}
			if err := setDue(form, due); err != nil {
				return err
			}

			if err := a.submit(cmd.Context(), form); err != nil {
				return err
			}
			return a.printSaved(cmd, result.task)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

func editCmd(opts *rootOptions) *cobra.Command {
	var (
		title       string
		description string
		due         string
	)

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the title, description or due date of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.mountList(cmd.Context(), nil)
			if err != nil {
				return err
			}
			id := model.TaskID(args[0])
			task, ok := list.Find(id)
			if !ok {
				return a.fail(a.msgs.NotFound, fmt.Errorf("task %s not listed", id))
			}

			result := &lastResult{}
			form := session.New(a.client, result, a.logger, a.msgs)
			if err := form.Open(&task); err != nil {
				return err
			}
			if cmd.Flags().Changed("title") {
				if err := form.SetTitle(title); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("description") {
				if err := form.SetDescription(description); err != nil {
					return err
				}
			}
			if err := setDue(form, due); err != nil {
				return err
			}

			if err := a.submit(cmd.Context(), form); err != nil {
				return err
			}
			if result.task == nil {
				// сервер не вернул задачу, перечитываем
				if err := list.Refresh(cmd.Context()); err == nil {
					if t, ok := list.Find(id); ok {
						result.task = &t
					}
				}
			}
			return a.printSaved(cmd, result.task)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD)")
	return cmd
}

func setDue(form *session.Session, due string) error {
	if due == "" {
		return nil
	}
	d, err := model.ParseDate(due)
	if err != nil {
		return err
	}
	return form.SetDueDate(&d)
}

func (a *app) submit(ctx context.Context, form *session.Session) error {
	err := form.Submit(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrInvalidDraft):
		return a.fail(a.msgs.TitleRequired, err)
	default:
		return a.fail(form.State().Message, err)
	}
}

func (a *app) printSaved(cmd *cobra.Command, task *model.Task) error {
	fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Saved)
	if task == nil {
		return nil
	}
	return shell.RenderTasks(cmd.OutOrStdout(), shell.FormatTable, []model.Task{*task}, a.msgs)
}
