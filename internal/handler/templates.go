package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/hooks"
	"github.com/joestump/hookline/internal/render"
	"github.com/joestump/hookline/web"
)

// BasePage carries layout-level data available to every template.
type BasePage struct {
	Theme    string // "hookline-light", "hookline-dark", or "" (let inline script decide)
	Username string // empty on unauthenticated pages
	Path     string
}

func newBasePage(r *http.Request, username string) BasePage {
	return BasePage{Theme: themeFromRequest(r), Username: username, Path: r.URL.Path}
}

// themeFromRequest reads the "theme" cookie. Returns "" if absent or invalid,
// so the server omits data-theme and lets the anti-flash inline script handle it.
func themeFromRequest(r *http.Request) string {
	c, err := r.Cookie("theme")
	if err != nil {
		return ""
	}
	if c.Value == themeLight || c.Value == themeDark {
		return c.Value
	}
	return ""
}

var funcs = template.FuncMap{
	"markdown":    render.Markdown,
	"userMessage": apperr.UserMessage,
	"errorKind":   func(err error) string { return string(apperr.KindOf(err)) },
	"stateClass":  stateClass,
	"duration": func(d time.Duration) string {
		if d <= 0 {
			return ""
		}
		return d.Round(100 * time.Millisecond).String()
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("15:04:05")
	},
}

func stateClass(s hooks.State) string {
	switch s {
	case hooks.StateSucceeded:
		return "badge-success"
	case hooks.StateFailed:
		return "badge-error"
	case hooks.StateGenerating:
		return "badge-info"
	default:
		return "badge-ghost"
	}
}

// pageCache maps a render key (e.g. "hooks.html") to a compiled template set
// containing base.html + partials + that one page file. Each page gets its own
// set so {{define "content"}} blocks don't collide.
var (
	pageCache    map[string]*template.Template
	fragmentTmpl *template.Template
)

func init() {
	partials, err := fs.Glob(web.TemplateFS, "templates/partials/*.html")
	if err != nil {
		panic("glob partials: " + err.Error())
	}

	// Standalone set for HTMX fragment rendering (partials only).
	fragmentTmpl = template.Must(template.New("").Funcs(funcs).ParseFS(web.TemplateFS, partials...))

	pageCache = make(map[string]*template.Template)
	err = fs.WalkDir(web.TemplateFS, "templates/pages", func(p string, d fs.DirEntry, e error) error {
		if e != nil || d.IsDir() || !strings.HasSuffix(p, ".html") {
			return e
		}

		files := make([]string, 0, 2+len(partials))
		files = append(files, "templates/base.html")
		files = append(files, partials...)
		files = append(files, p)

		t, err := template.New("").Funcs(funcs).ParseFS(web.TemplateFS, files...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		pageCache[filepath.Base(p)] = t
		return nil
	})
	if err != nil {
		panic("build page cache: " + err.Error())
	}
}

// Flash represents a one-time notification message shown to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// isHTMX returns true when the request was sent by HTMX.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// renderPage executes a full-page template (base layout + named page).
func renderPage(w http.ResponseWriter, status int, tmpl string, data any) {
	t, ok := pageCache[tmpl]
	if !ok {
		http.Error(w, "template not found: "+tmpl, http.StatusInternalServerError)
		return
	}
	var buf strings.Builder
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// renderFragment executes a named template from the partials set.
func renderFragment(w http.ResponseWriter, status int, tmpl string, data any) {
	var buf strings.Builder
	if err := fragmentTmpl.ExecuteTemplate(&buf, tmpl, data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}
