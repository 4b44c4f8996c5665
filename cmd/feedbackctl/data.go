package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDataCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage collected feedback and snapshots",
	}
	cmd.AddCommand(newDataClearCommand(a))
	return cmd
}

func newDataClearCommand(a *app) *cobra.Command {
	var feedback, snapshots bool

	cmd := &cobra.Command{
		Use:   "clear PROJECT_ID",
		Short: "Delete a project's feedback and/or snapshots (both when no flag is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			projectID := args[0]

			if _, err := a.projects.Get(ctx, projectID); err != nil {
				return err
			}

			if !feedback && !snapshots {
				feedback, snapshots = true, true
			}

			if feedback {
				deleted, err := a.feedback.Clear(ctx, projectID)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted %d feedback records\n", deleted)
			}

			if snapshots {
				deleted, err := a.snapshots.Clear(ctx, projectID)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted %d snapshots\n", deleted)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&feedback, "feedback", false, "clear feedback")
	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "clear snapshots")
	return cmd
}
