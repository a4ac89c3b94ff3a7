// Package view builds what the issue list actually renders from the
// authoritative page, the user's selection and any bulk payloads still in
// flight.
package view

import (
	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/model"
)

// OverflowLimit is how many rows past the page to fetch so a pending
// delete can be backfilled without shrinking the page.
func OverflowLimit(ov bulk.Overlay) int {
	if ov.Delete == nil {
		return 0
	}
	return len(ov.Delete.Issues)
}

// Reconcile drops rows covered by a pending delete, overlays a pending
// edit onto the rows it covers, and backfills from overflow one row for
// each row dropped. Backfilled rows get the same treatment. Neither input
// slice nor the issues in it are modified.
func Reconcile(page, overflow []*model.Issue, ov bulk.Overlay) []*model.Issue {
	out := make([]*model.Issue, 0, len(page))
	removed := 0
	for _, iss := range page {
		if ov.Deleted(iss.ID) {
			removed++
			continue
		}
		out = append(out, applyEdit(iss, ov))
	}

	for _, iss := range overflow {
		if removed == 0 {
			break
		}
		if ov.Deleted(iss.ID) {
			continue
		}
		out = append(out, applyEdit(iss, ov))
		removed--
	}
	return out
}

func applyEdit(iss *model.Issue, ov bulk.Overlay) *model.Issue {
	if cs, ok := ov.EditFor(iss.ID); ok {
		return cs.ApplyTo(iss)
	}
	return iss
}
