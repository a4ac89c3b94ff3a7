package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/model"
)

func newBulkCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Delete or edit many issues at once",
		RunE:  requireSubcommand,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete every listed issue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return submitBulk(cmd, gf, bulk.DeleteRequest{Issues: ids})
		},
	}

	editCmd := &cobra.Command{
		Use:     "edit <id>...",
		Short:   "Set the priority or status of every listed issue",
		Example: "  issuetrack bulk edit --priority high 3 7 9",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			changes := model.Changeset{
				Priority: optional(cmd, "priority"),
				Status:   optional(cmd, "status"),
			}
			if changes.IsEmpty() {
				return fmt.Errorf("nothing to change; use --priority or --status")
			}
			return submitBulk(cmd, gf, bulk.EditRequest{Issues: ids, Changeset: changes})
		},
	}
	editCmd.Flags().StringP("priority", "p", "", "new priority")
	editCmd.Flags().StringP("status", "s", "", "new status")

	cmd.AddCommand(deleteCmd, editCmd)
	return cmd
}

// submitBulk sends req through a bulk.Client backed by the daemon API and
// waits for its completion.
func submitBulk(cmd *cobra.Command, gf *globalFlags, req bulk.Request) error {
	client := bulk.NewClient(gf.newClient())
	done := <-client.Submit(cmd.Context(), req)
	client.Wait()

	if done.Err != nil {
		return fmt.Errorf("bulk %s: %w", req.Kind(), done.Err)
	}

	w := cmd.OutOrStdout()
	if !gf.pretty {
		printJSON(w, map[string]interface{}{
			"success":  true,
			"intent":   req.Kind(),
			"affected": done.Result.Affected,
		})
		return nil
	}
	verb := "Deleted"
	if req.Kind() == bulk.KindEdit {
		verb = "Updated"
	}
	fmt.Fprintf(w, "%s %d of %d issues\n", verb, done.Result.Affected, len(req.IssueIDs()))
	return nil
}
