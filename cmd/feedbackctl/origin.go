package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOriginCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "origin",
		Short: "Manage the origins a project accepts submissions from",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add PROJECT_ID ORIGIN",
			Short: "Allow an origin",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				origin, err := a.projects.AddOrigin(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added origin %s (%s)\n", origin.Origin, origin.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove PROJECT_ID ORIGIN_ID",
			Short: "Revoke an allowed origin",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.projects.RemoveOrigin(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Removed origin %s\n", args[1])
				return nil
			},
		},
	)
	return cmd
}
