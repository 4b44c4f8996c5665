package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

func newProjectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(
		newProjectCreateCommand(a),
		&cobra.Command{
			Use:   "list",
			Short: "List all projects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				projects, err := a.projects.List(cmd.Context())
				if err != nil {
					return err
				}
				renderProjects(a.out, projects)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show PROJECT_ID",
			Short: "Show a project with its origins and data counts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				project, err := a.projects.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				stats, err := a.projects.Stats(cmd.Context(), project.ID)
				if err != nil {
					return err
				}
				renderProject(a.out, project, stats)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rotate-key PROJECT_ID",
			Short: "Issue a new API key; the old key stops working immediately",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				project, err := a.projects.RotateKey(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, project.APIKey)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete PROJECT_ID",
			Short: "Delete a project with all of its feedback and snapshots",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.projects.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted project %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func newProjectCreateCommand(a *app) *cobra.Command {
	var (
		name    string
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project and print its API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := a.projects.Create(cmd.Context(), &domain.CreateProjectRequest{
				Name:           name,
				AllowedOrigins: origins,
			})
			if err != nil {
				return err
			}
			renderProject(a.out, project, nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed origin (repeatable, \"*\" allows any)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
