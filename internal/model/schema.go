package model

import "slices"

// Schema is the set of values the store accepts for the enumerated issue
// fields. It is configured by the operator, not fixed in code.
type Schema struct {
	Statuses        []string `json:"statuses"`
	Priorities      []string `json:"priorities"`
	DefaultStatus   string   `json:"default_status"`
	DefaultPriority string   `json:"default_priority"`
}

// DefaultSchema returns the schema used when the config does not override it.
func DefaultSchema() Schema {
	return Schema{
		Statuses:        []string{"todo", "in-progress", "done"},
		Priorities:      []string{"low", "medium", "high"},
		DefaultStatus:   "todo",
		DefaultPriority: "medium",
	}
}

func (s Schema) ValidStatus(v string) bool {
	return slices.Contains(s.Statuses, v)
}

func (s Schema) ValidPriority(v string) bool {
	return slices.Contains(s.Priorities, v)
}
