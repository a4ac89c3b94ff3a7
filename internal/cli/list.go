package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmaddaus/issuetrack/internal/filter"
)

func newListCmd(gf *globalFlags) *cobra.Command {
	var (
		req      filter.Request
		ids      []string
		exclude  []string
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		Example: `  issuetrack list --status todo --priority high
  issuetrack list --title login --top 50 --skip 50
  issuetrack list --id 3 --id 7 --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.IncludeIDs, err = parseIDs(ids); err != nil {
				return err
			}
			if req.ExcludeIDs, err = parseIDs(exclude); err != nil {
				return err
			}
			if cmd.Flags().Changed("top") {
				if pageSize < 0 {
					return fmt.Errorf("--top must not be negative")
				}
				req.PageSize = &pageSize
			}
			if req.Offset < 0 {
				return fmt.Errorf("--skip must not be negative")
			}

			page, err := gf.newClient().ListIssues(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("list issues: %w", err)
			}
			printIssuePage(cmd.OutOrStdout(), page, gf.pretty)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "", "filter by title substring")
	f.StringVar(&req.Status, "status", "", "filter by status")
	f.StringVar(&req.Priority, "priority", "", "filter by priority")
	f.StringSliceVar(&ids, "id", nil, "only these issue ids (repeatable)")
	f.StringSliceVar(&exclude, "exclude-id", nil, "leave out these issue ids (repeatable)")
	f.IntVar(&pageSize, "top", 0, "page size; 0 lists every match (default: the daemon's page_size)")
	f.IntVar(&req.Offset, "skip", 0, "number of matching issues to skip")
	return cmd
}
