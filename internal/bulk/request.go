// Package bulk implements the bulk delete/edit protocol: the tagged request
// type shared by the endpoint and its clients, the store-side apply step,
// and a client that tracks outstanding submissions for optimistic display.
package bulk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmaddaus/issuetrack/internal/model"
)

// Kind is the intent tag carried by every bulk request body.
type Kind string

const (
	KindDelete Kind = "delete"
	KindEdit   Kind = "edit"
)

var (
	// ErrMalformed is returned for bodies that fail to parse or validate.
	ErrMalformed = errors.New("malformed bulk request")
	// ErrEmptySelection is returned when a request names no issues.
	ErrEmptySelection = errors.New("no issues selected")
	// ErrUnknownIntent is returned for an intent tag this server does not
	// implement.
	ErrUnknownIntent = errors.New("unknown bulk intent")
)

// Request is one bulk operation. It is implemented only by DeleteRequest and
// EditRequest.
type Request interface {
	Kind() Kind
	IssueIDs() []int
	isRequest()
}

// DeleteRequest removes every listed issue.
type DeleteRequest struct {
	Issues []int
}

func (DeleteRequest) Kind() Kind        { return KindDelete }
func (r DeleteRequest) IssueIDs() []int { return r.Issues }
func (DeleteRequest) isRequest()        {}

func (r DeleteRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Intent Kind  `json:"intent"`
		Issues []int `json:"issues"`
	}{KindDelete, nonNil(r.Issues)})
}

// EditRequest applies Changeset to every listed issue.
type EditRequest struct {
	Issues    []int
	Changeset model.Changeset
}

func (EditRequest) Kind() Kind        { return KindEdit }
func (r EditRequest) IssueIDs() []int { return r.Issues }
func (EditRequest) isRequest()        {}

func (r EditRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Intent    Kind            `json:"intent"`
		Issues    []int           `json:"issues"`
		Changeset model.Changeset `json:"changeset"`
	}{KindEdit, nonNil(r.Issues), r.Changeset})
}

// wireRequest is the union of every field any intent may carry.
type wireRequest struct {
	Intent    *Kind            `json:"intent"`
	Issues    []int            `json:"issues"`
	Changeset *model.Changeset `json:"changeset"`
}

// Decode parses and validates a bulk request body. Checks run in a fixed
// order: the body must be JSON of the right shape, then it must name at
// least one issue, then the intent must be known, then the intent's own
// fields must validate against schema.
func Decode(body []byte, schema model.Schema) (Request, error) {
	var wire wireRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after request body", ErrMalformed)
	}

	if len(wire.Issues) == 0 {
		return nil, ErrEmptySelection
	}
	for _, id := range wire.Issues {
		if id <= 0 {
			return nil, fmt.Errorf("%w: invalid issue id %d", ErrMalformed, id)
		}
	}

	if wire.Intent == nil || *wire.Intent == "" {
		return nil, fmt.Errorf("%w: missing intent", ErrMalformed)
	}

	switch *wire.Intent {
	case KindDelete:
		return DeleteRequest{Issues: wire.Issues}, nil
	case KindEdit:
		if wire.Changeset == nil {
			return nil, fmt.Errorf("%w: edit requires a changeset", ErrMalformed)
		}
		if err := ValidateChangeset(*wire.Changeset, schema); err != nil {
			return nil, err
		}
		return EditRequest{Issues: wire.Issues, Changeset: *wire.Changeset}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, *wire.Intent)
	}
}

// ValidateChangeset checks every named field against the schema. An empty
// changeset is valid.
func ValidateChangeset(cs model.Changeset, schema model.Schema) error {
	if cs.Priority != nil && !schema.ValidPriority(*cs.Priority) {
		return fmt.Errorf("%w: priority %q is not one of %s",
			ErrMalformed, *cs.Priority, strings.Join(schema.Priorities, ", "))
	}
	if cs.Status != nil && !schema.ValidStatus(*cs.Status) {
		return fmt.Errorf("%w: status %q is not one of %s",
			ErrMalformed, *cs.Status, strings.Join(schema.Statuses, ", "))
	}
	return nil
}

// cloneRequest deep-copies req so later changes to the caller's slices or
// changeset values cannot reach a submission already in flight.
func cloneRequest(req Request) Request {
	switch r := req.(type) {
	case DeleteRequest:
		return DeleteRequest{Issues: slices.Clone(r.Issues)}
	case EditRequest:
		return EditRequest{Issues: slices.Clone(r.Issues), Changeset: cloneChangeset(r.Changeset)}
	default:
		return req
	}
}

func cloneChangeset(cs model.Changeset) model.Changeset {
	var out model.Changeset
	if cs.Priority != nil {
		p := *cs.Priority
		out.Priority = &p
	}
	if cs.Status != nil {
		s := *cs.Status
		out.Status = &s
	}
	return out
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
