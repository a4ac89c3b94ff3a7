package daemon

import "net/http"

// registerRoutes sets up the page and API routes on a new ServeMux and returns it.
func (d *Daemon) registerRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", d.health)
	mux.HandleFunc("GET /static/app.css", serveCSS)

	// Pages.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/issues", http.StatusFound)
	})
	mux.HandleFunc("GET /issues", d.listPage)
	// POST /issues is both the form target for bulk controls and the JSON
	// bulk endpoint; the handler dispatches on Content-Type.
	mux.HandleFunc("POST /issues", d.bulkAction)
	mux.HandleFunc("POST /issues/selection", d.selectionAction)
	mux.HandleFunc("GET /issues/new", d.newIssuePage)
	mux.HandleFunc("POST /issues/new", d.createIssuePage)
	mux.HandleFunc("GET /issues/new-bulk", d.newBulkPage)
	mux.HandleFunc("POST /issues/new-bulk", d.createBulkIssues)
	mux.HandleFunc("GET /issues/{id}", d.issuePage)
	mux.HandleFunc("POST /issues/{id}", d.issueAction)
	mux.HandleFunc("GET /issues/{id}/next", d.adjacentIssue)
	mux.HandleFunc("GET /issues/{id}/prev", d.adjacentIssue)
	mux.HandleFunc("GET /shortcuts", d.shortcutsPage)

	// JSON API.
	mux.HandleFunc("GET /api/issues", d.listIssues)
	mux.HandleFunc("POST /api/issues", d.createIssue)
	mux.HandleFunc("POST /api/issues/bulk", d.bulkIssues)
	mux.HandleFunc("GET /api/issues/{id}", d.getIssue)
	mux.HandleFunc("PATCH /api/issues/{id}", d.updateIssue)
	mux.HandleFunc("DELETE /api/issues/{id}", d.deleteIssue)

	return mux
}
