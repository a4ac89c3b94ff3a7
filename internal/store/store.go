package store

import (
	"context"
	"errors"

	"github.com/jmaddaus/issuetrack/internal/model"
)

// ErrNotFound is returned when an issue id does not exist.
var ErrNotFound = errors.New("issue not found")

// IssueFilter holds optional filter criteria for listing issues. Zero values
// mean "unfiltered" on that field.
type IssueFilter struct {
	Title      string // case-insensitive substring
	Status     string
	Priority   string
	IncludeIDs []int
	ExcludeIDs []int
	Limit      int // 0 means no limit
	Offset     int
}

// Direction selects a neighbour in id order.
type Direction int

const (
	Next Direction = iota
	Prev
)

// Store defines the persistence interface for issues.
type Store interface {
	CreateIssue(ctx context.Context, issue *model.Issue) (*model.Issue, error)
	GetIssue(ctx context.Context, id int) (*model.Issue, error)
	ListIssues(ctx context.Context, filter IssueFilter) ([]*model.Issue, error)
	// ListIssueIDs returns every id matching the filter, ignoring Limit and Offset.
	ListIssueIDs(ctx context.Context, filter IssueFilter) ([]int, error)
	UpdateIssue(ctx context.Context, issue *model.Issue) error
	DeleteIssue(ctx context.Context, id int) error

	// Bulk mutations report the number of rows affected. Ids that no longer
	// exist are skipped, so repeating a call is not an error.
	UpdateIssues(ctx context.Context, ids []int, changes model.Changeset) (int64, error)
	DeleteIssues(ctx context.Context, ids []int) (int64, error)

	// AdjacentIssueID returns the id after (or before) id, wrapping around
	// at either end. It returns ErrNotFound when there are no issues.
	AdjacentIssueID(ctx context.Context, id int, dir Direction) (int, error)

	Close() error
}
