package bulk

import (
	"context"
	"fmt"

	"github.com/jmaddaus/issuetrack/internal/store"
)

// Result is the endpoint's success acknowledgement.
type Result struct {
	Affected int64 `json:"affected"`
}

// Apply performs req against st. Ids that no longer exist are skipped, so
// repeating a request affects zero rows instead of failing.
func Apply(ctx context.Context, st store.Store, req Request) (Result, error) {
	if len(req.IssueIDs()) == 0 {
		return Result{}, ErrEmptySelection
	}

	var (
		n   int64
		err error
	)
	switch r := req.(type) {
	case DeleteRequest:
		n, err = st.DeleteIssues(ctx, r.Issues)
	case EditRequest:
		n, err = st.UpdateIssues(ctx, r.Issues, r.Changeset)
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownIntent, req)
	}
	if err != nil {
		return Result{}, fmt.Errorf("apply %s: %w", req.Kind(), err)
	}
	return Result{Affected: n}, nil
}

// StoreSender delivers requests straight to a store. The daemon uses it for
// submissions made from its own pages.
type StoreSender struct {
	Store store.Store
}

func (s StoreSender) Send(ctx context.Context, req Request) (Result, error) {
	return Apply(ctx, s.Store, req)
}
