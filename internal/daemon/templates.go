package daemon

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed ui/*.html ui/app.css
var uiFS embed.FS

var pageNames = []string{"list", "issue", "new", "new_bulk", "not_found", "error", "shortcuts"}

// markdown renders descriptions. Raw HTML in the source is omitted since
// the renderer is not configured WithUnsafe.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var templateFuncs = template.FuncMap{
	"markdown": func(src string) template.HTML {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(src), &buf); err != nil {
			return template.HTML(template.HTMLEscapeString(src))
		}
		return template.HTML(buf.String())
	},
	"title": titleCase,
}

// titleCase upper-cases the first rune of s.
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// parsePages builds one template per page, each sharing the layout.
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(uiFS, "ui/layout.html", "ui/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

// layout is embedded in every page model.
type layout struct {
	Title string
	Flash string
	Error string
}

// render executes page into a buffer so a template failure can still turn
// into a clean 500.
func (d *Daemon) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := d.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("render page", "page", page, "error", err, "request_id", requestIDFrom(r.Context()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

type errorPage struct {
	layout
	Status int
}

// renderError shows a bare error page.
func (d *Daemon) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	d.render(w, r, status, "error", errorPage{
		layout: layout{Title: http.StatusText(status), Error: msg},
		Status: status,
	})
}

type notFoundPage struct {
	layout
	Number string
}

func (d *Daemon) renderNotFound(w http.ResponseWriter, r *http.Request, number string) {
	d.render(w, r, http.StatusNotFound, "not_found", notFoundPage{
		layout: layout{Title: "Issue not found"},
		Number: number,
	})
}

func serveCSS(w http.ResponseWriter, r *http.Request) {
	data, err := uiFS.ReadFile("ui/app.css")
	if err != nil {
		http.Error(w, "stylesheet not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(data)
}
