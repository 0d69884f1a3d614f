package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/shell"
	"github.com/BuzzLyutic/taskboard/internal/tasklist"
)

func rmCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks after confirmation",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			prompt := shell.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), a.msgs, yes)
			list := tasklist.New(a.client, prompt, a.logger, tasklist.Options{
				Messages:     a.msgs,
				DeletePolicy: a.policy,
			})

			for _, arg := range args {
				deleted, err := list.Delete(cmd.Context(), model.TaskID(arg))
				if err != nil {
					return a.fail(list.State().Message, err)
				}
				if deleted {
					fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Deleted)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
