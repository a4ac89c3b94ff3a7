package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jmaddaus/issuetrack/internal/model"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	printJSON(&buf, map[string]string{"key": "value"})

	var m map[string]string
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v\nOutput: %s", err, buf.String())
	}
	if m["key"] != "value" {
		t.Errorf("expected key=value, got %v", m)
	}
}

func TestPrintPretty(t *testing.T) {
	issues := []*model.Issue{
		{
			ID:        7,
			Status:    "todo",
			Priority:  "high",
			Title:     "Test Issue",
			CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	printPretty(&buf, issues)
	out := buf.String()

	for _, want := range []string{"ID", "PRIORITY", "007", "high", "Mar 5 2024", "Test Issue"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestPrintPrettyEmpty(t *testing.T) {
	var buf bytes.Buffer
	printPretty(&buf, nil)
	if strings.TrimSpace(buf.String()) != "No issues found." {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestPrintIssuePageFooter(t *testing.T) {
	page := &IssuePage{
		IDs:    []int{1, 2, 3, 4, 5},
		Issues: []*model.Issue{{ID: 3, Title: "c"}, {ID: 4, Title: "d"}},
		Offset: 2,
	}

	var buf bytes.Buffer
	printIssuePage(&buf, page, true)
	if !strings.Contains(buf.String(), "Showing 3-4 of 5") {
		t.Errorf("expected footer, got: %s", buf.String())
	}

	buf.Reset()
	printIssuePage(&buf, page, false)
	var decoded IssuePage
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON, got error: %v", err)
	}
	if len(decoded.IDs) != 5 || decoded.Offset != 2 {
		t.Errorf("unexpected decoded page: %+v", decoded)
	}
}

func TestPrintPrettyIssue(t *testing.T) {
	issue := &model.Issue{
		ID:          12,
		Title:       "My Issue",
		Status:      "in-progress",
		Priority:    "low",
		Description: "A description",
		CreatedAt:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 1, 16, 10, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	printPrettyIssue(&buf, issue)
	out := buf.String()

	for _, want := range []string{"Issue 012", "My Issue", "in-progress", "A description", "2024-01-15 10:00:00", "ago)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	printMessage(&buf, "hello world", true)
	if strings.TrimSpace(buf.String()) != "hello world" {
		t.Errorf("pretty message: want 'hello world', got %q", strings.TrimSpace(buf.String()))
	}

	buf.Reset()
	printMessage(&buf, "hello world", false)
	var m map[string]string
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON, got error: %v", err)
	}
	if m["message"] != "hello world" {
		t.Errorf("JSON message: want 'hello world', got %v", m)
	}
}
