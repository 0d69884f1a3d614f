package main

import (
	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskboard/internal/session"
	"github.com/BuzzLyutic/taskboard/internal/shell"
	"github.com/BuzzLyutic/taskboard/internal/tasklist"
	"github.com/BuzzLyutic/taskboard/internal/worker"
)

func shellCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive task board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			pool := worker.NewPool(a.logger, a.cfg.Workers)
			pool.Start(ctx)
			defer pool.Stop()

			out := shell.NewSyncWriter(cmd.OutOrStdout())
			prompt := shell.NewPrompter(cmd.InOrStdin(), out, a.msgs, yes)
			list := tasklist.New(a.client, prompt, a.logger, tasklist.Options{
				Messages:     a.msgs,
				DeletePolicy: a.policy,
			})
			defer list.Close()
			form := session.New(a.client, list, a.logger, a.msgs)

			return shell.New(list, form, pool, prompt, out, a.msgs, a.logger).Run(ctx)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before deleting")
	return cmd
}
