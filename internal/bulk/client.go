package bulk

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jmaddaus/issuetrack/internal/model"
)

// Sender delivers a bulk request to the endpoint.
type Sender interface {
	Send(ctx context.Context, req Request) (Result, error)
}

// Completion is delivered once per submission.
type Completion struct {
	ID     uuid.UUID
	Result Result
	Err    error
}

// Client submits bulk requests asynchronously and exposes the payloads
// still in flight. Submissions are not coordinated with one another: two
// overlapping requests both run, and the later one owns the overlay slot.
type Client struct {
	sender  Sender
	tracker *Tracker
	wg      sync.WaitGroup
}

func NewClient(sender Sender) *Client {
	return &Client{sender: sender, tracker: NewTracker()}
}

// SubmitDelete starts a bulk delete of ids.
func (c *Client) SubmitDelete(ctx context.Context, ids []int) <-chan Completion {
	return c.Submit(ctx, DeleteRequest{Issues: ids})
}

// SubmitEdit starts a bulk edit of ids.
func (c *Client) SubmitEdit(ctx context.Context, ids []int, changes model.Changeset) <-chan Completion {
	return c.Submit(ctx, EditRequest{Issues: ids, Changeset: changes})
}

// Submit records req as outstanding and sends it in the background. The
// returned channel receives exactly one Completion and is then closed;
// callers that do not care may drop it.
func (c *Client) Submit(ctx context.Context, req Request) <-chan Completion {
	req = cloneRequest(req)
	id := c.tracker.Begin(req)
	done := make(chan Completion, 1)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)

		res, err := c.sender.Send(ctx, req)
		if current := c.tracker.Resolve(id, err); !current {
			slog.Debug("bulk submission superseded", "op", id, "intent", req.Kind())
		}
		if err != nil {
			slog.Warn("bulk submission failed", "op", id, "intent", req.Kind(),
				"issues", len(req.IssueIDs()), "error", err)
		} else {
			slog.Debug("bulk submission confirmed", "op", id, "intent", req.Kind(),
				"affected", res.Affected)
		}
		done <- Completion{ID: id, Result: res, Err: err}
	}()
	return done
}

// Overlay returns the payloads of the submissions still in flight.
func (c *Client) Overlay() Overlay {
	return c.tracker.Overlay()
}

// Outstanding returns the in-flight submission of kind, if any.
func (c *Client) Outstanding(kind Kind) (Pending, bool) {
	return c.tracker.Outstanding(kind)
}

// TakeFailure returns the most recent failure and forgets it.
func (c *Client) TakeFailure() (Pending, bool) {
	return c.tracker.TakeFailure()
}

// Wait blocks until every submission has completed.
func (c *Client) Wait() {
	c.wg.Wait()
}
