package bulk

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaddaus/issuetrack/internal/model"
)

// gatedSender blocks each Send until the test releases the gate for the
// request's first issue id.
type gatedSender struct {
	mu      sync.Mutex
	gates   map[int]chan error
	started chan Request
}

func newGatedSender() *gatedSender {
	return &gatedSender{gates: make(map[int]chan error), started: make(chan Request, 8)}
}

func (s *gatedSender) gate(id int) chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[id]
	if !ok {
		g = make(chan error, 1)
		s.gates[id] = g
	}
	return g
}

func (s *gatedSender) release(id int, err error) {
	s.gate(id) <- err
}

func (s *gatedSender) Send(ctx context.Context, req Request) (Result, error) {
	s.started <- req
	select {
	case err := <-s.gate(req.IssueIDs()[0]):
		if err != nil {
			return Result{}, err
		}
		return Result{Affected: int64(len(req.IssueIDs()))}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func TestClientOverlayWhileInFlight(t *testing.T) {
	s := newGatedSender()
	c := NewClient(s)
	ctx := context.Background()

	done := c.SubmitDelete(ctx, []int{2})
	<-s.started

	assert.True(t, c.Overlay().Deleted(2))
	p, ok := c.Outstanding(KindDelete)
	require.True(t, ok)
	assert.Equal(t, DeleteRequest{Issues: []int{2}}, p.Request)

	s.release(2, nil)
	got := <-done
	require.NoError(t, got.Err)
	assert.Equal(t, int64(1), got.Result.Affected)
	assert.True(t, c.Overlay().Empty())

	_, open := <-done
	assert.False(t, open, "completion channel is closed after one value")
	c.Wait()
}

func TestClientEditOverlay(t *testing.T) {
	s := newGatedSender()
	c := NewClient(s)

	done := c.SubmitEdit(context.Background(), []int{5, 6}, model.Changeset{Priority: strPtr("high")})
	<-s.started

	cs, ok := c.Overlay().EditFor(6)
	require.True(t, ok)
	assert.Equal(t, "high", *cs.Priority)

	s.release(5, nil)
	<-done
	c.Wait()
}

func TestClientSubmitCopiesIssueIDs(t *testing.T) {
	s := newGatedSender()
	c := NewClient(s)

	ids := []int{7, 8}
	done := c.SubmitDelete(context.Background(), ids)
	sent := <-s.started
	ids[0], ids[1] = 1, 1

	assert.Equal(t, []int{7, 8}, sent.IssueIDs())
	assert.True(t, c.Overlay().Deleted(8))
	assert.False(t, c.Overlay().Deleted(1))

	s.release(7, nil)
	<-done
	c.Wait()
}

func TestClientFailureRollsBackAndIsReported(t *testing.T) {
	s := newGatedSender()
	c := NewClient(s)
	boom := errors.New("server said no")

	done := c.SubmitDelete(context.Background(), []int{3})
	<-s.started
	s.release(3, boom)

	got := <-done
	assert.ErrorIs(t, got.Err, boom)
	assert.True(t, c.Overlay().Empty())

	p, ok := c.TakeFailure()
	require.True(t, ok)
	assert.Equal(t, got.ID, p.ID)
	assert.Equal(t, Failed, p.State)
	c.Wait()
}

func TestClientLaterSubmissionOwnsSlot(t *testing.T) {
	s := newGatedSender()
	c := NewClient(s)
	ctx := context.Background()

	first := c.SubmitDelete(ctx, []int{1})
	second := c.SubmitDelete(ctx, []int{2})
	<-s.started
	<-s.started

	ov := c.Overlay()
	assert.False(t, ov.Deleted(1))
	assert.True(t, ov.Deleted(2))

	// The first request still runs to completion; its result does not
	// disturb the newer payload.
	s.release(1, nil)
	require.NoError(t, (<-first).Err)
	assert.True(t, c.Overlay().Deleted(2))

	s.release(2, nil)
	require.NoError(t, (<-second).Err)
	assert.True(t, c.Overlay().Empty())
	c.Wait()
}

func TestClientWaitWithDroppedChannels(t *testing.T) {
	s := newGatedSender()
	c := NewClient(s)
	ctx, cancel := context.WithCancel(context.Background())

	c.SubmitDelete(ctx, []int{8})
	c.SubmitEdit(ctx, []int{9}, model.Changeset{})
	<-s.started
	<-s.started
	cancel()

	c.Wait()
	assert.True(t, c.Overlay().Empty())
	_, ok := c.TakeFailure()
	assert.True(t, ok, "cancelled submission is recorded as failed")
}
