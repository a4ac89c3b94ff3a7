package bulk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaddaus/issuetrack/internal/model"
	"github.com/jmaddaus/issuetrack/internal/store"
)

func newTestStore(t *testing.T, n int) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	for i := range n {
		_, err := s.CreateIssue(context.Background(), &model.Issue{
			Title:    "issue " + model.PadID(i+1),
			Status:   "todo",
			Priority: "medium",
		})
		require.NoError(t, err)
	}
	return s
}

func TestApplyDelete(t *testing.T) {
	s := newTestStore(t, 3)
	ctx := context.Background()

	res, err := Apply(ctx, s, DeleteRequest{Issues: []int{1, 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Affected)

	remaining, err := s.ListIssueIDs(ctx, store.IssueFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, remaining)
}

func TestApplyDeleteTwiceIsNoop(t *testing.T) {
	s := newTestStore(t, 3)
	ctx := context.Background()
	req := DeleteRequest{Issues: []int{2}}

	_, err := Apply(ctx, s, req)
	require.NoError(t, err)

	res, err := Apply(ctx, s, req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Affected)
}

func TestApplyEditOnlyTouchesNamedFields(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	res, err := Apply(ctx, s, EditRequest{Issues: []int{2}, Changeset: model.Changeset{Priority: strPtr("high")}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Affected)

	iss, err := s.GetIssue(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "high", iss.Priority)
	assert.Equal(t, "todo", iss.Status)
	assert.Equal(t, "issue 002", iss.Title)

	iss, err = s.GetIssue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "medium", iss.Priority)
}

func TestApplyEmptySelection(t *testing.T) {
	s := newTestStore(t, 1)
	for _, req := range []Request{DeleteRequest{}, EditRequest{Changeset: model.Changeset{Priority: strPtr("low")}}} {
		_, err := Apply(context.Background(), s, req)
		assert.ErrorIs(t, err, ErrEmptySelection)
	}
}

func TestStoreSender(t *testing.T) {
	s := newTestStore(t, 2)
	res, err := StoreSender{Store: s}.Send(context.Background(), DeleteRequest{Issues: []int{1, 2, 9}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Affected)
}
