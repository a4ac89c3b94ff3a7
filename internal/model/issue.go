package model

import (
	"fmt"
	"time"
)

type Issue struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PaddedID returns the id zero-padded to three digits ("007").
func (i *Issue) PaddedID() string {
	return PadID(i.ID)
}

// PadID formats an issue number the way it is displayed everywhere in the UI.
func PadID(id int) string {
	return fmt.Sprintf("%03d", id)
}

// Changeset is a partial update applied to one or many issues. Nil fields
// are left untouched.
type Changeset struct {
	Priority *string `json:"priority,omitempty"`
	Status   *string `json:"status,omitempty"`
}

// IsEmpty reports whether the changeset names no fields.
func (c Changeset) IsEmpty() bool {
	return c.Priority == nil && c.Status == nil
}

// ApplyTo returns a copy of issue with the changeset's fields overlaid.
// The original issue is not modified.
func (c Changeset) ApplyTo(issue *Issue) *Issue {
	out := *issue
	if c.Priority != nil {
		out.Priority = *c.Priority
	}
	if c.Status != nil {
		out.Status = *c.Status
	}
	return &out
}
