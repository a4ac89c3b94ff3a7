package view

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/model"
	"github.com/jmaddaus/issuetrack/internal/selection"
)

// Row is one rendered table row.
type Row struct {
	Issue      *model.Issue
	PaddedID   string
	Selected   bool
	Navigable  bool // whole-row click opens the detail page
	Pending    bool // an optimistic edit is shown
	Created    string
	CreatedAgo string
}

// Table is the issue table with its selection header and bulk controls.
type Table struct {
	Rows []Row

	Selected int
	Matching int

	// PageSelected drives the header checkbox: every rendered row is
	// selected.
	PageSelected        bool
	AllMatchingSelected bool
	ShowBulkControls    bool
}

// PageIDs returns the ids of the rendered rows in order.
func (t Table) PageIDs() []int {
	ids := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		ids[i] = r.Issue.ID
	}
	return ids
}

// NewTable lays out rows. matching is every id that matches the current
// filter, used for the "select all" state. now anchors relative dates.
func NewTable(rows []*model.Issue, sel *selection.Set, matching []int, ov bulk.Overlay, now time.Time) Table {
	t := Table{
		Rows:     make([]Row, len(rows)),
		Selected: sel.Len(),
		Matching: len(matching),
	}
	for i, iss := range rows {
		_, edited := ov.EditFor(iss.ID)
		t.Rows[i] = Row{
			Issue:      iss,
			PaddedID:   iss.PaddedID(),
			Selected:   sel.Has(iss.ID),
			Navigable:  sel.Len() == 0,
			Pending:    edited,
			Created:    iss.CreatedAt.Format("Jan 2"),
			CreatedAgo: humanize.RelTime(iss.CreatedAt, now, "ago", "from now"),
		}
	}
	t.PageSelected = sel.ContainsAll(t.PageIDs())
	t.AllMatchingSelected = sel.ContainsAll(matching)
	t.ShowBulkControls = sel.Len() > 0
	return t
}
