package bulk

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaddaus/issuetrack/internal/model"
)

func TestTrackerConfirmClearsSlot(t *testing.T) {
	tr := NewTracker()
	id := tr.Begin(DeleteRequest{Issues: []int{2}})

	p, ok := tr.Outstanding(KindDelete)
	require.True(t, ok)
	assert.Equal(t, InFlight, p.State)
	assert.True(t, tr.Overlay().Deleted(2))

	assert.True(t, tr.Resolve(id, nil))
	_, ok = tr.Outstanding(KindDelete)
	assert.False(t, ok)
	assert.True(t, tr.Overlay().Empty())
	_, ok = tr.LastFailure()
	assert.False(t, ok)
}

func TestTrackerFailureRollsBack(t *testing.T) {
	tr := NewTracker()
	id := tr.Begin(EditRequest{Issues: []int{4}, Changeset: model.Changeset{Priority: strPtr("high")}})
	boom := errors.New("boom")

	assert.True(t, tr.Resolve(id, boom))
	assert.True(t, tr.Overlay().Empty(), "failed payload must not stay in the overlay")

	p, ok := tr.LastFailure()
	require.True(t, ok)
	assert.Equal(t, Failed, p.State)
	assert.Equal(t, id, p.ID)
	assert.ErrorIs(t, p.Err, boom)

	_, ok = tr.TakeFailure()
	assert.True(t, ok)
	_, ok = tr.TakeFailure()
	assert.False(t, ok)
}

func TestTrackerLaterSubmissionWins(t *testing.T) {
	tr := NewTracker()
	first := tr.Begin(DeleteRequest{Issues: []int{1}})
	second := tr.Begin(DeleteRequest{Issues: []int{2}})

	ov := tr.Overlay()
	assert.False(t, ov.Deleted(1))
	assert.True(t, ov.Deleted(2))

	assert.False(t, tr.Resolve(first, errors.New("late")), "superseded id is ignored")
	assert.True(t, tr.Overlay().Deleted(2))
	_, ok := tr.LastFailure()
	assert.False(t, ok)

	assert.True(t, tr.Resolve(second, nil))
}

func TestTrackerKindsAreIndependent(t *testing.T) {
	tr := NewTracker()
	tr.Begin(DeleteRequest{Issues: []int{1}})
	tr.Begin(EditRequest{Issues: []int{3}, Changeset: model.Changeset{Status: strPtr("done")}})

	ov := tr.Overlay()
	assert.True(t, ov.Deleted(1))
	cs, ok := ov.EditFor(3)
	require.True(t, ok)
	assert.Equal(t, "done", *cs.Status)
	_, ok = ov.EditFor(1)
	assert.False(t, ok)
}

func TestTrackerResolveUnknownID(t *testing.T) {
	assert.False(t, NewTracker().Resolve(uuid.New(), nil))
}

func TestOverlayIsASnapshot(t *testing.T) {
	tr := NewTracker()
	tr.Begin(DeleteRequest{Issues: []int{1, 2}})
	ov := tr.Overlay()
	ov.Delete.Issues[1] = 42

	assert.True(t, tr.Overlay().Deleted(2))
	assert.True(t, ov.Deleted(1))
}

func TestTrackerCopiesRequest(t *testing.T) {
	tr := NewTracker()
	ids := []int{1, 2}
	prio := "high"
	tr.Begin(EditRequest{Issues: ids, Changeset: model.Changeset{Priority: &prio}})
	ids[0], prio = 9, "low"

	ov := tr.Overlay()
	assert.Equal(t, []int{1, 2}, ov.Edit.Issues)
	assert.Equal(t, "high", *ov.Edit.Changeset.Priority)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "in-flight", InFlight.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "failed", Failed.String())
}
