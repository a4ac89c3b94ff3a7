package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/filter"
	"github.com/jmaddaus/issuetrack/internal/model"
	"github.com/jmaddaus/issuetrack/internal/store"
)

// runCLI executes the command tree with args and returns everything it
// printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// tempConfig writes a config file whose data lives under a temp dir.
func tempConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "config.json")
	dbPath = filepath.Join(dir, "issues.db")
	data := `{
		// written by the test
		"data_dir": "` + dir + `",
		"db_path": "` + dbPath + `",
	}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0644))
	return cfgPath, dbPath
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "issuetrack version test\n", out)

	out, err = runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "issuetrack version test")
}

func TestUnknownCommand(t *testing.T) {
	_, err := runCLI(t, "frobnicate")
	assert.ErrorContains(t, err, "unknown command")

	_, err = runCLI(t, "bulk", "archive", "1")
	assert.ErrorContains(t, err, "unknown bulk subcommand: archive")
}

func TestParseID(t *testing.T) {
	for in, want := range map[string]int{"7": 7, "007": 7, "#12": 12, " 3 ": 3} {
		got, err := parseID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "0", "-1", "abc", "#"} {
		_, err := parseID(in)
		assert.Error(t, err, in)
	}
}

func TestHostFromEnvironment(t *testing.T) {
	ts, _ := newTestDaemon(t)
	t.Setenv("ISSUETRACK_HOST", ts.URL)

	out, err := runCLI(t, "status", "--pretty")
	require.NoError(t, err)
	assert.Contains(t, out, "Daemon status: ok")
	assert.Contains(t, out, "Sessions:      0")
}

func TestStatusDaemonDown(t *testing.T) {
	_, err := runCLI(t, "status", "--host", "http://127.0.0.1:1")
	assert.ErrorContains(t, err, "daemon not running")
}

func TestIssueCommandsAgainstDaemon(t *testing.T) {
	ts, _ := newTestDaemon(t)
	host := "--host=" + ts.URL

	out, err := runCLI(t, host, "create", "Login is slow", "-p", "high", "-d", "Takes *ages*")
	require.NoError(t, err)
	var created model.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "high", created.Priority)
	assert.Equal(t, "todo", created.Status)

	out, err = runCLI(t, host, "show", "#001", "--pretty")
	require.NoError(t, err)
	assert.Contains(t, out, "Issue 001")
	assert.Contains(t, out, "Takes *ages*")

	out, err = runCLI(t, host, "update", "1", "--status", "done")
	require.NoError(t, err)
	var updated model.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "done", updated.Status)
	assert.Equal(t, "Login is slow", updated.Title)

	_, err = runCLI(t, host, "update", "1")
	assert.ErrorContains(t, err, "no fields to update")

	_, err = runCLI(t, host, "update", "1", "--priority", "urgent")
	assert.ErrorContains(t, err, "priority")

	out, err = runCLI(t, host, "list", "--pretty")
	require.NoError(t, err)
	assert.Contains(t, out, "001")
	assert.Contains(t, out, "Showing 1-1 of 1")

	out, err = runCLI(t, host, "delete", "1", "--pretty")
	require.NoError(t, err)
	assert.Equal(t, "Deleted issue 001\n", out)

	_, err = runCLI(t, host, "show", "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListFiltersAndPaging(t *testing.T) {
	ts, c := newTestDaemon(t)
	ctx := context.Background()
	for _, p := range []string{"high", "low", "high", "high"} {
		_, err := c.CreateIssue(ctx, IssueInput{Title: strPtr("issue"), Priority: strPtr(p)})
		require.NoError(t, err)
	}

	out, err := runCLI(t, "--host", ts.URL, "list", "--priority", "high", "--top", "1", "--skip", "1")
	require.NoError(t, err)

	var page IssuePage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, []int{1, 3, 4}, page.IDs)
	require.Len(t, page.Issues, 1)
	assert.Equal(t, 3, page.Issues[0].ID)
	assert.Equal(t, 1, page.PageSize)
	assert.Equal(t, 1, page.Offset)

	out, err = runCLI(t, "--host", ts.URL, "list", "--id", "2", "--id", "4", "--exclude-id", "4")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, []int{2}, page.IDs)

	_, err = runCLI(t, "--host", ts.URL, "list", "--id", "nope")
	assert.ErrorContains(t, err, "invalid issue id")
}

func TestBulkCommands(t *testing.T) {
	ts, c := newTestDaemon(t)
	ctx := context.Background()
	for range 3 {
		_, err := c.CreateIssue(ctx, IssueInput{Title: strPtr("issue"), Priority: strPtr("low")})
		require.NoError(t, err)
	}
	host := "--host=" + ts.URL

	out, err := runCLI(t, host, "bulk", "edit", "--priority", "high", "1", "2")
	require.NoError(t, err)
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "edit", res["intent"])
	assert.EqualValues(t, 2, res["affected"])

	issue, err := c.GetIssue(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "high", issue.Priority)

	out, err = runCLI(t, host, "--pretty", "bulk", "delete", "1", "3", "99")
	require.NoError(t, err)
	assert.Equal(t, "Deleted 2 of 3 issues\n", out)

	page, err := c.ListIssues(ctx, filter.Request{})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, page.IDs)

	_, err = runCLI(t, host, "bulk", "edit", "2")
	assert.ErrorContains(t, err, "nothing to change")

	_, err = runCLI(t, host, "bulk", "edit", "--status", "shipped", "2")
	assert.ErrorIs(t, err, bulk.ErrMalformed)

	_, err = runCLI(t, host, "bulk", "delete", "two")
	assert.ErrorContains(t, err, "invalid issue id")

	_, err = runCLI(t, host, "bulk", "delete")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	_, err := runCLI(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = runCLI(t, "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = runCLI(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	out, err := runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	var shown map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, ":8043", shown["listen_addr"])
	assert.EqualValues(t, 10, shown["page_size"])
}

func TestSeedWritesToConfiguredDatabase(t *testing.T) {
	cfgPath, dbPath := tempConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "seed", "-n", "3")
	require.NoError(t, err)

	var created []*model.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Len(t, created, 3)
	for _, iss := range created {
		assert.True(t, strings.HasPrefix(iss.Title, "As "), iss.Title)
	}

	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer st.Close()
	ids, err := st.ListIssueIDs(context.Background(), store.IssueFilter{})
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	_, err = runCLI(t, "--config", cfgPath, "seed", "-n", "0")
	assert.ErrorContains(t, err, "-n must be positive")
}

func TestServeRejectsBadFlags(t *testing.T) {
	cfgPath, _ := tempConfig(t)
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, err := runCLI(t, "--config", cfgPath, "serve", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid --log-level")

	_, err = runCLI(t, "--config", cfgPath, "serve", "--listen", "nowhere")
	assert.ErrorContains(t, err, "invalid --listen")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", true)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "id", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.EqualValues(t, 7, rec["id"])
}
