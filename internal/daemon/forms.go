package daemon

import (
	"strings"

	"github.com/jmaddaus/issuetrack/internal/model"
)

// issueInput is a create or edit submission from either a form or JSON.
// Nil fields were not submitted.
type issueInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

// fieldErrors maps a field name to its validation message.
type fieldErrors map[string]string

// validate checks the submitted fields. requireTitle is set for creates
// and full edits.
func (in *issueInput) validate(schema model.Schema, requireTitle bool) fieldErrors {
	errs := fieldErrors{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if (in.Title == nil && requireTitle) || (in.Title != nil && *in.Title == "") {
		errs["title"] = "Title is required"
	}
	if in.Status != nil && !schema.ValidStatus(*in.Status) {
		errs["status"] = "Status must be one of " + strings.Join(schema.Statuses, ", ")
	}
	if in.Priority != nil && !schema.ValidPriority(*in.Priority) {
		errs["priority"] = "Priority must be one of " + strings.Join(schema.Priorities, ", ")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// applyTo copies the submitted fields onto iss.
func (in issueInput) applyTo(iss *model.Issue) {
	if in.Title != nil {
		iss.Title = *in.Title
	}
	if in.Description != nil {
		iss.Description = *in.Description
	}
	if in.Status != nil {
		iss.Status = *in.Status
	}
	if in.Priority != nil {
		iss.Priority = *in.Priority
	}
}

// newIssue builds an unsaved issue, filling schema defaults.
func (in issueInput) newIssue(schema model.Schema) *model.Issue {
	iss := &model.Issue{
		Status:   schema.DefaultStatus,
		Priority: schema.DefaultPriority,
	}
	in.applyTo(iss)
	return iss
}

// formValue returns a pointer to a posted form field, or nil when the
// field is absent.
func formValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}
