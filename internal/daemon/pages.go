package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/config"
	"github.com/jmaddaus/issuetrack/internal/filter"
	"github.com/jmaddaus/issuetrack/internal/model"
	"github.com/jmaddaus/issuetrack/internal/seed"
	"github.com/jmaddaus/issuetrack/internal/selection"
	"github.com/jmaddaus/issuetrack/internal/store"
	"github.com/jmaddaus/issuetrack/internal/view"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

// enumOptions builds select options, optionally led by an "Any" choice
// that is selected when current is empty.
func enumOptions(values []string, current string, withAny bool) []option {
	opts := make([]option, 0, len(values)+1)
	if withAny {
		opts = append(opts, option{Value: filter.Any, Label: "Any", Selected: current == ""})
	}
	for _, v := range values {
		opts = append(opts, option{Value: v, Label: v, Selected: v == current})
	}
	return opts
}

func listURL(query string) string {
	if query == "" {
		return "/issues"
	}
	return "/issues?" + query
}

func issueURL(id int) string {
	return "/issues/" + strconv.Itoa(id)
}

// ---------------------------------------------------------------------------
// Issue list
// ---------------------------------------------------------------------------

type chip struct {
	Label     string
	RemoveURL string
}

type listPageData struct {
	layout

	Req    filter.Request
	Return string // canonical query of this page, posted back by forms
	Top    string // current $top, empty when unset
	Table  view.Table

	StatusOptions       []option
	PriorityOptions     []option
	PageSizeOptions     []option
	BulkPriorityOptions []option

	Chips            []chip
	ClearURL         string
	PrevURL          string
	NextURL          string
	ViewSelectionURL string

	From, To, Total int
	Pending         []string
}

func (d *Daemon) listPage(w http.ResponseWriter, r *http.Request) {
	dec, err := filter.Decode(r.URL.RawQuery)
	if err != nil {
		d.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if dec.Redirect {
		http.Redirect(w, r, listURL(dec.RedirectQuery), http.StatusFound)
		return
	}

	sess := d.sessions.get(w, r)
	data, err := d.buildListPage(r.Context(), dec.Request, sess)
	if err != nil {
		d.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	d.render(w, r, http.StatusOK, "list", data)
}

// matchingIDs lists every id the request matches, less those a pending
// delete presumes gone.
func (d *Daemon) matchingIDs(ctx context.Context, req filter.Request, ov bulk.Overlay) ([]int, error) {
	ids, err := d.store.ListIssueIDs(ctx, req.StoreFilter(0))
	if err != nil {
		return nil, fmt.Errorf("list issue ids: %w", err)
	}
	return slices.DeleteFunc(ids, ov.Deleted), nil
}

func (d *Daemon) buildListPage(ctx context.Context, req filter.Request, sess *session) (*listPageData, error) {
	pageSize := req.EffectivePageSize(d.cfg.PageSize)
	ov := sess.client.Overlay()

	limit := 0
	if pageSize > 0 {
		limit = pageSize + view.OverflowLimit(ov)
	}
	fetched, err := d.store.ListIssues(ctx, req.StoreFilter(limit))
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	page, overflow := fetched, []*model.Issue(nil)
	if pageSize > 0 && len(fetched) > pageSize {
		page, overflow = fetched[:pageSize], fetched[pageSize:]
	}

	matching, err := d.matchingIDs(ctx, req, ov)
	if err != nil {
		return nil, err
	}

	sel := sess.selection()
	rows := view.Reconcile(page, overflow, ov)

	data := &listPageData{
		layout:              layout{Title: "Issues", Flash: sess.takeFlash()},
		Req:                 req,
		Return:              req.Encode(),
		Table:               view.NewTable(rows, sel, matching, ov, d.now()),
		StatusOptions:       enumOptions(d.cfg.Statuses, req.Status, true),
		PriorityOptions:     enumOptions(d.cfg.Priorities, req.Priority, true),
		BulkPriorityOptions: enumOptions(d.cfg.Priorities, "", false),
		ClearURL:            listURL(req.Cleared().Encode()),
		Total:               len(matching),
	}
	if req.PageSize != nil {
		data.Top = strconv.Itoa(*req.PageSize)
	}

	for _, n := range config.PageSizes {
		label := strconv.Itoa(n)
		if n == 0 {
			label = "All"
		}
		data.PageSizeOptions = append(data.PageSizeOptions, option{
			Value: strconv.Itoa(n), Label: label, Selected: n == pageSize,
		})
	}

	for _, id := range req.IncludeIDs {
		v := req.Values()
		v.Add(filter.ParamRemoveID, strconv.Itoa(id))
		data.Chips = append(data.Chips, chip{Label: model.PadID(id), RemoveURL: listURL(v.Encode())})
	}

	if sel.Len() > 0 {
		data.ViewSelectionURL = listURL(req.WithIDs(sel.IDs()).Encode())
	}

	if len(rows) > 0 {
		data.From = req.Offset + 1
		data.To = req.Offset + len(rows)
	}
	if pageSize > 0 {
		if req.Offset > 0 {
			data.PrevURL = listURL(req.WithOffset(req.Offset - pageSize).Encode())
		}
		if req.Offset+pageSize < data.Total {
			data.NextURL = listURL(req.WithOffset(req.Offset + pageSize).Encode())
		}
	}

	if ov.Delete != nil {
		data.Pending = append(data.Pending, fmt.Sprintf("Deleting %d issues…", len(ov.Delete.Issues)))
	}
	if ov.Edit != nil {
		data.Pending = append(data.Pending, fmt.Sprintf("Updating %d issues…", len(ov.Edit.Issues)))
	}
	if p, ok := sess.client.TakeFailure(); ok {
		data.Error = fmt.Sprintf("Bulk %s of %d issues failed: %v", p.Request.Kind(), len(p.Request.IssueIDs()), p.Err)
	}

	return data, nil
}

// returnRequest recovers the list request a form was posted from.
func returnRequest(raw string) filter.Request {
	dec, err := filter.Decode(raw)
	if err != nil {
		return filter.Request{}
	}
	return dec.Request
}

func parseIDList(raw []string) []int {
	var ids []int
	for _, s := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func (d *Daemon) selectionAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		d.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req := returnRequest(r.PostForm.Get("return"))
	sess := d.sessions.get(w, r)

	switch action := r.PostForm.Get("action"); action {
	case "toggle":
		id, err := strconv.Atoi(r.PostForm.Get("id"))
		if err != nil || id <= 0 {
			d.renderError(w, r, http.StatusBadRequest, "invalid issue id")
			return
		}
		sess.updateSelection(func(s *selection.Set) { s.Toggle(id) })
	case "page":
		ids := parseIDList(r.PostForm["page"])
		sess.updateSelection(func(s *selection.Set) { s.TogglePage(ids) })
	case "all":
		ids, err := d.matchingIDs(r.Context(), req, sess.client.Overlay())
		if err != nil {
			d.renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		sess.updateSelection(func(s *selection.Set) { s.Add(ids...) })
	case "clear":
		sess.updateSelection(func(s *selection.Set) { s.Clear() })
	default:
		d.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown selection action %q", action))
		return
	}

	http.Redirect(w, r, listURL(req.Encode()), http.StatusSeeOther)
}

// bulkAction handles POST /issues. A JSON body is the synchronous bulk
// endpoint; a form body comes from the list page's bulk controls and is
// submitted in the background against the session's selection.
func (d *Daemon) bulkAction(w http.ResponseWriter, r *http.Request) {
	if isJSON(r) {
		d.bulkIssues(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		d.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ret := returnRequest(r.PostForm.Get("return"))
	sess := d.sessions.get(w, r)

	ids := sess.selection().IDs()
	if len(ids) == 0 {
		d.renderError(w, r, http.StatusBadRequest, bulk.ErrEmptySelection.Error())
		return
	}

	var req bulk.Request
	switch intent := bulk.Kind(r.PostForm.Get("intent")); intent {
	case bulk.KindDelete:
		req = bulk.DeleteRequest{Issues: ids}
	case bulk.KindEdit:
		cs := model.Changeset{
			Priority: nonEmpty(formValue(r.PostForm, "priority")),
			Status:   nonEmpty(formValue(r.PostForm, "status")),
		}
		if err := bulk.ValidateChangeset(cs, d.cfg.Schema); err != nil {
			d.renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req = bulk.EditRequest{Issues: ids, Changeset: cs}
	default:
		d.renderError(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("%v: %q", bulk.ErrUnknownIntent, intent))
		return
	}

	sess.updateSelection(func(s *selection.Set) { s.Clear() })
	sess.client.Submit(context.WithoutCancel(r.Context()), req)
	slog.Info("bulk submitted", "intent", req.Kind(), "issues", len(ids),
		"request_id", requestIDFrom(r.Context()))

	http.Redirect(w, r, listURL(ret.Encode()), http.StatusSeeOther)
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// ---------------------------------------------------------------------------
// Issue detail
// ---------------------------------------------------------------------------

// issueForm holds the values shown in the create and edit forms.
type issueForm struct {
	Title       string
	Description string
	Status      string
	Priority    string
}

func formFromIssue(iss *model.Issue) issueForm {
	return issueForm{Title: iss.Title, Description: iss.Description, Status: iss.Status, Priority: iss.Priority}
}

type issuePageData struct {
	layout
	Issue           *model.Issue
	Form            issueForm
	Errors          fieldErrors
	StatusOptions   []option
	PriorityOptions []option
}

func (d *Daemon) issuePageData(iss *model.Issue, form issueForm, errs fieldErrors) issuePageData {
	return issuePageData{
		layout:          layout{Title: "Issue " + iss.PaddedID()},
		Issue:           iss,
		Form:            form,
		Errors:          errs,
		StatusOptions:   enumOptions(d.cfg.Statuses, form.Status, false),
		PriorityOptions: enumOptions(d.cfg.Priorities, form.Priority, false),
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil && id > 0
}

// loadIssue fetches the issue named in the path, rendering the not-found
// page or an error when it cannot.
func (d *Daemon) loadIssue(w http.ResponseWriter, r *http.Request) (*model.Issue, bool) {
	id, ok := pathID(r)
	if !ok {
		d.renderNotFound(w, r, r.PathValue("id"))
		return nil, false
	}
	iss, err := d.store.GetIssue(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		d.renderNotFound(w, r, model.PadID(id))
		return nil, false
	}
	if err != nil {
		d.renderError(w, r, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return iss, true
}

func (d *Daemon) issuePage(w http.ResponseWriter, r *http.Request) {
	iss, ok := d.loadIssue(w, r)
	if !ok {
		return
	}
	data := d.issuePageData(iss, formFromIssue(iss), nil)
	data.Flash = d.sessions.get(w, r).takeFlash()
	d.render(w, r, http.StatusOK, "issue", data)
}

func (d *Daemon) issueAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		d.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	switch intent := r.PostForm.Get("intent"); intent {
	case "edit":
		d.editIssue(w, r)
	case "delete":
		d.deleteIssuePage(w, r)
	default:
		d.renderError(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("unknown intent %q", intent))
	}
}

func (d *Daemon) editIssue(w http.ResponseWriter, r *http.Request) {
	iss, ok := d.loadIssue(w, r)
	if !ok {
		return
	}

	in := issueInput{
		Title:       formValue(r.PostForm, "title"),
		Description: formValue(r.PostForm, "description"),
		Status:      formValue(r.PostForm, "status"),
		Priority:    formValue(r.PostForm, "priority"),
	}
	if errs := in.validate(d.cfg.Schema, true); errs != nil {
		form := issueForm{
			Title:       r.PostForm.Get("title"),
			Description: r.PostForm.Get("description"),
			Status:      r.PostForm.Get("status"),
			Priority:    r.PostForm.Get("priority"),
		}
		d.render(w, r, http.StatusBadRequest, "issue", d.issuePageData(iss, form, errs))
		return
	}

	in.applyTo(iss)
	if err := d.store.UpdateIssue(r.Context(), iss); err != nil {
		d.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	d.sessions.get(w, r).setFlash("Saved issue " + iss.PaddedID())
	http.Redirect(w, r, issueURL(iss.ID), http.StatusSeeOther)
}

func (d *Daemon) deleteIssuePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		d.renderNotFound(w, r, r.PathValue("id"))
		return
	}
	err := d.store.DeleteIssue(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		d.renderNotFound(w, r, model.PadID(id))
		return
	}
	if err != nil {
		d.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	d.sessions.get(w, r).setFlash("Deleted issue " + model.PadID(id))
	http.Redirect(w, r, "/issues", http.StatusSeeOther)
}

func (d *Daemon) adjacentIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		d.renderNotFound(w, r, r.PathValue("id"))
		return
	}
	dir := store.Next
	if strings.HasSuffix(r.URL.Path, "/prev") {
		dir = store.Prev
	}

	next, err := d.store.AdjacentIssueID(r.Context(), id, dir)
	if errors.Is(err, store.ErrNotFound) {
		d.renderNotFound(w, r, model.PadID(id))
		return
	}
	if err != nil {
		d.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	http.Redirect(w, r, issueURL(next), http.StatusFound)
}

// ---------------------------------------------------------------------------
// New issues
// ---------------------------------------------------------------------------

// Redirect policies for the create form.
const (
	redirectNone  = "none"
	redirectIndex = "index"
	redirectItem  = "item"
)

type newPageData struct {
	layout
	Form           issueForm
	Errors         fieldErrors
	RedirectPolicy string
}

func (d *Daemon) newIssuePage(w http.ResponseWriter, r *http.Request) {
	d.render(w, r, http.StatusOK, "new", newPageData{
		layout:         layout{Title: "New issue"},
		RedirectPolicy: redirectNone,
	})
}

func (d *Daemon) createIssuePage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		d.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	policy := r.PostForm.Get("redirectPolicy")
	if policy == "" {
		policy = redirectNone
	}
	in := issueInput{
		Title:       formValue(r.PostForm, "title"),
		Description: formValue(r.PostForm, "description"),
	}
	errs := in.validate(d.cfg.Schema, true)
	if policy != redirectNone && policy != redirectIndex && policy != redirectItem {
		if errs == nil {
			errs = fieldErrors{}
		}
		errs["redirectPolicy"] = "Unknown redirect policy"
	}
	if errs != nil {
		d.render(w, r, http.StatusBadRequest, "new", newPageData{
			layout: layout{Title: "New issue"},
			Form: issueForm{
				Title:       r.PostForm.Get("title"),
				Description: r.PostForm.Get("description"),
			},
			Errors:         errs,
			RedirectPolicy: policy,
		})
		return
	}

	created, err := d.store.CreateIssue(r.Context(), in.newIssue(d.cfg.Schema))
	if err != nil {
		d.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	msg := "Created issue " + created.PaddedID()

	switch policy {
	case redirectIndex:
		d.sessions.get(w, r).setFlash(msg)
		http.Redirect(w, r, "/issues", http.StatusSeeOther)
	case redirectItem:
		d.sessions.get(w, r).setFlash(msg)
		http.Redirect(w, r, issueURL(created.ID), http.StatusSeeOther)
	default:
		d.render(w, r, http.StatusOK, "new", newPageData{
			layout:         layout{Title: "New issue", Flash: msg},
			RedirectPolicy: policy,
		})
	}
}

func (d *Daemon) newBulkPage(w http.ResponseWriter, r *http.Request) {
	d.render(w, r, http.StatusOK, "new_bulk", layout{Title: "Bulk create sample issues"})
}

type shortcut struct {
	Key    string
	Action string
}

// shortcuts mirrors the accesskey attributes set in the page templates.
var shortcuts = []shortcut{
	{"n", "New issue"},
	{"j", "Next page, or next issue on an issue page"},
	{"k", "Previous page, or previous issue on an issue page"},
	{"a", "Select every issue matching the current filter"},
	{"?", "Show this page"},
}

type shortcutsPage struct {
	layout
	Shortcuts []shortcut
}

func (d *Daemon) shortcutsPage(w http.ResponseWriter, r *http.Request) {
	d.render(w, r, http.StatusOK, "shortcuts", shortcutsPage{
		layout:    layout{Title: "Keyboard shortcuts"},
		Shortcuts: shortcuts,
	})
}

func (d *Daemon) createBulkIssues(w http.ResponseWriter, r *http.Request) {
	created, err := seed.NewGenerator(d.cfg.Schema, nil).Create(r.Context(), d.store, seed.DefaultCount)
	if err != nil {
		d.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	d.sessions.get(w, r).setFlash(fmt.Sprintf("Created %d issues", len(created)))
	http.Redirect(w, r, "/issues", http.StatusSeeOther)
}
