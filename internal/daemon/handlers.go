package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/filter"
	"github.com/jmaddaus/issuetrack/internal/model"
	"github.com/jmaddaus/issuetrack/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "marshal error: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// errorResponse reports a rejected submission, echoing it back.
type errorResponse struct {
	Status     string      `json:"status"`
	Error      string      `json:"error"`
	Fields     fieldErrors `json:"fields,omitempty"`
	Submission interface{} `json:"submission,omitempty"`
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (d *Daemon) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":   "ok",
		"sessions": d.sessions.len(),
	}

	// Include uptime if the daemon has been started via Run().
	if !d.startedAt.IsZero() {
		resp["uptime"] = time.Since(d.startedAt).Round(time.Second).String()
	}

	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Bulk
// ---------------------------------------------------------------------------

type bulkResponse struct {
	Success  bool  `json:"success"`
	Affected int64 `json:"affected"`
}

// bulkStatus maps a bulk error to its HTTP status.
func bulkStatus(err error) int {
	switch {
	case errors.Is(err, bulk.ErrUnknownIntent):
		return http.StatusMethodNotAllowed
	case errors.Is(err, bulk.ErrMalformed), errors.Is(err, bulk.ErrEmptySelection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeBulkError(w http.ResponseWriter, err error, body []byte) {
	resp := errorResponse{Status: "error", Error: err.Error()}
	if json.Valid(body) {
		resp.Submission = json.RawMessage(body)
	} else if len(body) > 0 {
		resp.Submission = string(body)
	}
	writeJSON(w, bulkStatus(err), resp)
}

// bulkIssues is the synchronous bulk endpoint. The body is validated
// before anything reaches the store.
func (d *Daemon) bulkIssues(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeBulkError(w, fmt.Errorf("%w: %v", bulk.ErrMalformed, err), nil)
		return
	}

	req, err := bulk.Decode(body, d.cfg.Schema)
	if err != nil {
		writeBulkError(w, err, body)
		return
	}

	res, err := bulk.Apply(r.Context(), d.store, req)
	if err != nil {
		writeBulkError(w, err, body)
		return
	}

	slog.Info("bulk applied",
		"intent", req.Kind(),
		"issues", len(req.IssueIDs()),
		"affected", res.Affected,
		"request_id", requestIDFrom(r.Context()),
	)
	writeJSON(w, http.StatusOK, bulkResponse{Success: true, Affected: res.Affected})
}

// ---------------------------------------------------------------------------
// Issues
// ---------------------------------------------------------------------------

type listResponse struct {
	IDs      []int          `json:"ids"`
	Issues   []*model.Issue `json:"issues"`
	PageSize int            `json:"page_size"`
	Offset   int            `json:"offset"`
}

func (d *Daemon) listIssues(w http.ResponseWriter, r *http.Request) {
	dec, err := filter.Decode(r.URL.RawQuery)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if dec.Redirect {
		http.Redirect(w, r, "/api/issues?"+dec.RedirectQuery, http.StatusFound)
		return
	}

	req := dec.Request
	pageSize := req.EffectivePageSize(d.cfg.PageSize)

	issues, err := d.store.ListIssues(r.Context(), req.StoreFilter(pageSize))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ids, err := d.store.ListIssueIDs(r.Context(), req.StoreFilter(0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if issues == nil {
		issues = []*model.Issue{}
	}
	if ids == nil {
		ids = []int{}
	}

	writeJSON(w, http.StatusOK, listResponse{
		IDs:      ids,
		Issues:   issues,
		PageSize: pageSize,
		Offset:   req.Offset,
	})
}

func (d *Daemon) getIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	issue, err := d.store.GetIssue(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "issue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, issue)
}

func (d *Daemon) createIssue(w http.ResponseWriter, r *http.Request) {
	var in issueInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := in.validate(d.cfg.Schema, true); errs != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status: "error", Error: "invalid issue", Fields: errs, Submission: in,
		})
		return
	}

	created, err := d.store.CreateIssue(r.Context(), in.newIssue(d.cfg.Schema))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create issue: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (d *Daemon) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	var in issueInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := in.validate(d.cfg.Schema, false); errs != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status: "error", Error: "invalid issue", Fields: errs, Submission: in,
		})
		return
	}

	ctx := r.Context()
	issue, err := d.store.GetIssue(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "issue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	in.applyTo(issue)
	if err := d.store.UpdateIssue(ctx, issue); err != nil {
		writeError(w, http.StatusInternalServerError, "update issue: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, issue)
}

func (d *Daemon) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	if err := d.store.DeleteIssue(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "issue not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete issue: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "deleted", "id": id})
}
