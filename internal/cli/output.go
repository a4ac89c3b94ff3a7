package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmaddaus/issuetrack/internal/model"
)

// printIssue prints a single issue either as JSON or as a pretty-printed block.
func printIssue(w io.Writer, issue *model.Issue, pretty bool) {
	if pretty {
		printPrettyIssue(w, issue)
		return
	}
	printJSON(w, issue)
}

// printIssuePage prints a list result either as JSON or as a table followed
// by a "showing x-y of n" footer.
func printIssuePage(w io.Writer, page *IssuePage, pretty bool) {
	if !pretty {
		printJSON(w, page)
		return
	}
	printPretty(w, page.Issues)
	if len(page.Issues) > 0 {
		fmt.Fprintf(w, "\nShowing %d-%d of %d\n",
			page.Offset+1, page.Offset+len(page.Issues), len(page.IDs))
	}
}

// printJSON outputs v as indented JSON.
func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// printPretty outputs issues as a tabwriter-formatted table.
func printPretty(w io.Writer, issues []*model.Issue) {
	if len(issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tCREATED\tTITLE")
	for _, iss := range issues {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			iss.PaddedID(),
			iss.Status,
			iss.Priority,
			iss.CreatedAt.Format("Jan 2 2006"),
			iss.Title,
		)
	}
	tw.Flush()
}

// printPrettyIssue outputs a single issue in a readable multi-line format.
func printPrettyIssue(w io.Writer, issue *model.Issue) {
	fmt.Fprintf(w, "Issue %s\n", issue.PaddedID())
	fmt.Fprintf(w, "  Title:       %s\n", issue.Title)
	fmt.Fprintf(w, "  Status:      %s\n", issue.Status)
	fmt.Fprintf(w, "  Priority:    %s\n", issue.Priority)
	if issue.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", issue.Description)
	}
	fmt.Fprintf(w, "  Created:     %s (%s)\n", issue.CreatedAt.Format(time.DateTime), humanize.Time(issue.CreatedAt))
	fmt.Fprintf(w, "  Updated:     %s\n", issue.UpdatedAt.Format(time.DateTime))
}

// printMessage prints a simple message (used for non-issue results).
func printMessage(w io.Writer, msg string, pretty bool) {
	if pretty {
		fmt.Fprintln(w, msg)
		return
	}
	printJSON(w, map[string]string{"message": msg})
}
