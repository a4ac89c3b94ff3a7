package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   `create "title"`,
		Short: "Create an issue",
		Long: `Create an issue. Status and priority default to the daemon's
default_status and default_priority.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := args[0]
			in := IssueInput{
				Title:       &title,
				Description: optional(cmd, "description"),
				Status:      optional(cmd, "status"),
				Priority:    optional(cmd, "priority"),
			}

			issue, err := gf.newClient().CreateIssue(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create issue: %w", err)
			}
			printIssue(cmd.OutOrStdout(), issue, gf.pretty)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("description", "d", "", "description (markdown)")
	f.StringP("status", "s", "", "status")
	f.StringP("priority", "p", "", "priority")
	return cmd
}
