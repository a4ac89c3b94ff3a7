package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmaddaus/issuetrack/internal/model"
)

func newShowCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			issue, err := gf.newClient().GetIssue(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("show issue: %w", err)
			}
			printIssue(cmd.OutOrStdout(), issue, gf.pretty)
			return nil
		},
	}
}

func newUpdateCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			in := IssueInput{
				Title:       optional(cmd, "title"),
				Description: optional(cmd, "description"),
				Status:      optional(cmd, "status"),
				Priority:    optional(cmd, "priority"),
			}
			if in.empty() {
				return fmt.Errorf("no fields to update; use --status, --priority, --title, or --description")
			}

			issue, err := gf.newClient().UpdateIssue(cmd.Context(), id, in)
			if err != nil {
				return fmt.Errorf("update issue: %w", err)
			}
			printIssue(cmd.OutOrStdout(), issue, gf.pretty)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("title", "t", "", "new title")
	f.StringP("description", "d", "", "new description")
	f.StringP("status", "s", "", "new status")
	f.StringP("priority", "p", "", "new priority")
	return cmd
}

func newDeleteCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Permanently delete an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := gf.newClient().DeleteIssue(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete issue: %w", err)
			}
			printMessage(cmd.OutOrStdout(), "Deleted issue "+model.PadID(id), gf.pretty)
			return nil
		},
	}
}
