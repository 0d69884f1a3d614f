package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/session"
	"github.com/BuzzLyutic/taskboard/internal/shell"
)

// toggleCmd builds "done" and "undo". Every id is toggled in its own edit
// session, at most workers at a time.
func toggleCmd(opts *rootOptions, name string, completed bool) *cobra.Command {
	short := "Mark tasks as completed"
	if !completed {
		short = "Mark tasks as not completed"
	}

	return &cobra.Command{
		Use:   name + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
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

			ids := make([]model.TaskID, 0, len(args))
			tasks := make([]model.Task, 0, len(args))
			for _, arg := range args {
				id := model.TaskID(arg)
				task, ok := list.Find(id)
				if !ok {
					return a.fail(a.msgs.NotFound, fmt.Errorf("task %s not listed", id))
				}
				ids = append(ids, id)
				tasks = append(tasks, task)
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(a.cfg.Workers)
			for i := range tasks {
				task := tasks[i]
				g.Go(func() error {
					form := session.New(a.client, list, a.logger, a.msgs)
					if err := form.Open(&task); err != nil {
						return err
					}
					defer form.Cancel()
					if err := form.ToggleCompleted(ctx, completed); err != nil {
						return a.fail(a.msgs.ForError(err, a.msgs.ToggleFailed), err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			changed := make([]model.Task, 0, len(ids))
			for _, id := range ids {
				if t, ok := list.Find(id); ok {
					changed = append(changed, t)
				}
			}
			return shell.RenderTasks(cmd.OutOrStdout(), shell.FormatTable, changed, a.msgs)
		},
	}
}
