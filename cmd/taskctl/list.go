package main

import (
	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskboard/internal/shell"
)

func listCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := shell.ParseFormat(output)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.mountList(cmd.Context(), nil)
			if err != nil {
				return err
			}
			return shell.RenderTasks(cmd.OutOrStdout(), format, list.Tasks(), a.msgs)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (table, json, yaml)")
	return cmd
}
