package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/filter"
	"github.com/jmaddaus/issuetrack/internal/model"
	"github.com/jmaddaus/issuetrack/internal/store"
)

// Client is an HTTP client wrapper for communicating with the daemon's JSON
// API. It also implements bulk.Sender, so a bulk.Client can submit through it.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new Client targeting the given daemon host.
func NewClient(host string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(host, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the daemon. It unwraps to the
// matching package sentinel when the status code identifies one.
type APIError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.err }

// Do executes an HTTP request to the daemon and returns the response.
// If body is non-nil it is JSON-encoded.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return nil, fmt.Errorf("daemon not running at %s; start with: issuetrack serve", c.baseURL)
		}
		return nil, fmt.Errorf("request failed (is the daemon running?): %w", err)
	}
	return resp, nil
}

// decodeOrError reads the response body. If the status is not in the 2xx
// range it returns an *APIError built from the JSON error body.
func decodeOrError(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var errResp struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error + formatFields(errResp.Fields)
		}
		if resp.StatusCode == http.StatusNotFound {
			apiErr.err = store.ErrNotFound
		}
		return apiErr
	}

	if v != nil {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		parts = append(parts, name+": "+fields[name])
	}
	return " (" + strings.Join(parts, "; ") + ")"
}

// IssueInput carries the fields for creating or patching an issue. Nil
// fields are left to the daemon's defaults or left unchanged.
type IssueInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

func (in IssueInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Status == nil && in.Priority == nil
}

// IssuePage is one page of a list query plus every matching id.
type IssuePage struct {
	IDs      []int          `json:"ids"`
	Issues   []*model.Issue `json:"issues"`
	PageSize int            `json:"page_size"`
	Offset   int            `json:"offset"`
}

// ListIssues runs req against the daemon. The query string is produced by
// the same codec the list page decodes with.
func (c *Client) ListIssues(ctx context.Context, req filter.Request) (*IssuePage, error) {
	path := "/api/issues"
	if q := req.Encode(); q != "" {
		path += "?" + q
	}
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var page IssuePage
	if err := decodeOrError(resp, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetIssue retrieves a single issue by ID.
func (c *Client) GetIssue(ctx context.Context, id int) (*model.Issue, error) {
	resp, err := c.Do(ctx, http.MethodGet, issuePath(id), nil)
	if err != nil {
		return nil, err
	}
	var issue model.Issue
	if err := decodeOrError(resp, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssue creates a new issue.
func (c *Client) CreateIssue(ctx context.Context, in IssueInput) (*model.Issue, error) {
	resp, err := c.Do(ctx, http.MethodPost, "/api/issues", in)
	if err != nil {
		return nil, err
	}
	var issue model.Issue
	if err := decodeOrError(resp, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateIssue patches the given fields on an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, id int, in IssueInput) (*model.Issue, error) {
	resp, err := c.Do(ctx, http.MethodPatch, issuePath(id), in)
	if err != nil {
		return nil, err
	}
	var issue model.Issue
	if err := decodeOrError(resp, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// DeleteIssue permanently deletes an issue.
func (c *Client) DeleteIssue(ctx context.Context, id int) error {
	resp, err := c.Do(ctx, http.MethodDelete, issuePath(id), nil)
	if err != nil {
		return err
	}
	return decodeOrError(resp, nil)
}

// Health pings the daemon health endpoint.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := decodeOrError(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Send posts req to the bulk endpoint. Rejections unwrap to the bulk
// package's sentinels.
func (c *Client) Send(ctx context.Context, req bulk.Request) (bulk.Result, error) {
	resp, err := c.Do(ctx, http.MethodPost, "/api/issues/bulk", req)
	if err != nil {
		return bulk.Result{}, err
	}
	var out struct {
		Success  bool  `json:"success"`
		Affected int64 `json:"affected"`
	}
	if err := decodeOrError(resp, &out); err != nil {
		return bulk.Result{}, classifyBulkError(err)
	}
	if !out.Success {
		return bulk.Result{}, errors.New("bulk request was not applied")
	}
	return bulk.Result{Affected: out.Affected}, nil
}

func classifyBulkError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusMethodNotAllowed:
		apiErr.err = bulk.ErrUnknownIntent
	case http.StatusBadRequest:
		if strings.HasPrefix(apiErr.Message, bulk.ErrEmptySelection.Error()) {
			apiErr.err = bulk.ErrEmptySelection
		} else {
			apiErr.err = bulk.ErrMalformed
		}
	}
	return apiErr
}

func issuePath(id int) string {
	return "/api/issues/" + strconv.Itoa(id)
}
