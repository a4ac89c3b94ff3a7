package bulk

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmaddaus/issuetrack/internal/model"
)

// State is the lifecycle position of a submission.
type State int

const (
	InFlight State = iota
	Confirmed
	Failed
)

func (s State) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Pending is one tracked submission.
type Pending struct {
	ID        uuid.UUID
	Request   Request
	State     State
	Err       error
	StartedAt time.Time
}

// Tracker holds at most one outstanding submission per Kind. Beginning a
// new submission of a kind replaces the previous one; a late resolution of
// the replaced submission is ignored. Resolving clears the slot whether the
// submission was confirmed or failed, so a failure rolls the overlay back.
type Tracker struct {
	mu          sync.Mutex
	slots       map[Kind]*Pending
	lastFailure *Pending
	now         func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		slots: make(map[Kind]*Pending),
		now:   time.Now,
	}
}

// Begin records req as the outstanding submission of its kind and returns
// the operation id to resolve it with. The tracker keeps its own copy of
// req.
func (t *Tracker) Begin(req Request) uuid.UUID {
	req = cloneRequest(req)

	t.mu.Lock()
	defer t.mu.Unlock()

	p := &Pending{
		ID:        uuid.New(),
		Request:   req,
		State:     InFlight,
		StartedAt: t.now(),
	}
	t.slots[req.Kind()] = p
	return p.ID
}

// Resolve settles the submission id. It reports false when id is no longer
// outstanding because a later submission of the same kind replaced it.
func (t *Tracker) Resolve(id uuid.UUID, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for kind, p := range t.slots {
		if p.ID != id {
			continue
		}
		delete(t.slots, kind)
		if err != nil {
			p.State, p.Err = Failed, err
			t.lastFailure = p
		} else {
			p.State = Confirmed
		}
		return true
	}
	return false
}

// Outstanding returns the in-flight submission of kind, if any.
func (t *Tracker) Outstanding(kind Kind) (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.slots[kind]
	if !ok {
		return Pending{}, false
	}
	return *p, true
}

// LastFailure returns the most recent failed submission.
func (t *Tracker) LastFailure() (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastFailure == nil {
		return Pending{}, false
	}
	return *t.lastFailure, true
}

// TakeFailure returns the most recent failed submission and forgets it.
func (t *Tracker) TakeFailure() (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastFailure == nil {
		return Pending{}, false
	}
	p := *t.lastFailure
	t.lastFailure = nil
	return p, true
}

// Overlay snapshots the outstanding payloads for rendering.
func (t *Tracker) Overlay() Overlay {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ov Overlay
	if p, ok := t.slots[KindDelete]; ok {
		r := p.Request.(DeleteRequest)
		ov.Delete = &DeleteRequest{Issues: slices.Clone(r.Issues)}
	}
	if p, ok := t.slots[KindEdit]; ok {
		r := p.Request.(EditRequest)
		ov.Edit = &EditRequest{Issues: slices.Clone(r.Issues), Changeset: r.Changeset}
	}
	return ov
}

// Overlay is the set of payloads presumed applied while their submissions
// are outstanding.
type Overlay struct {
	Delete *DeleteRequest
	Edit   *EditRequest
}

func (o Overlay) Empty() bool {
	return o.Delete == nil && o.Edit == nil
}

// Deleted reports whether id is part of an outstanding delete.
func (o Overlay) Deleted(id int) bool {
	return o.Delete != nil && slices.Contains(o.Delete.Issues, id)
}

// EditFor returns the outstanding changeset covering id.
func (o Overlay) EditFor(id int) (model.Changeset, bool) {
	if o.Edit == nil || !slices.Contains(o.Edit.Issues, id) {
		return model.Changeset{}, false
	}
	return o.Edit.Changeset, true
}
