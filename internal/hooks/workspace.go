// Package hooks owns the per-session workspace and the loop that turns a list
// of URLs into generated hooks and fit analyses.
package hooks

import (
	"sync"
	"time"

	"github.com/joestump/hookline/internal/llm"
	"github.com/joestump/hookline/internal/sitemeta"
	"github.com/joestump/hookline/internal/templates"
)

// State is the lifecycle of one generation for one URL.
//
//	Pending -> Generating -> Succeeded | Failed
//
// Succeeded and Failed are terminal until the user re-triggers the URL.
// StateNone marks a style that was never requested for the URL, e.g. the
// hook of a URL that has only had a fit analysis.
type State string

const (
	StateNone       State = ""
	StatePending    State = "pending"
	StateGenerating State = "generating"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Outcome is the latest result of one style of generation for one URL.
type Outcome struct {
	URL       string
	Style     llm.Style
	State     State
	Text      string
	Err       error
	UpdatedAt time.Time
	Duration  time.Duration
}

// Done reports whether the outcome is terminal.
func (o Outcome) Done() bool { return o.State == StateSucceeded || o.State == StateFailed }

// Entry groups everything known about one URL in a workspace.
type Entry struct {
	URL     string
	Hook    Outcome
	Fit     *Outcome
	Preview *sitemeta.Preview
}

// Workspace is the state of one signed-in session: who owns it, the active
// templates, and results keyed by URL in first-seen order. It is created at
// login and dropped at logout.
type Workspace struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	// run is held for the whole of a generation call so calls within one
	// workspace never overlap.
	run sync.Mutex

	now       func() time.Time
	mu        sync.RWMutex
	lastUsed  time.Time
	templates templates.Set
	entries   map[string]*Entry
	order     []string
}

func newWorkspace(id, owner string, set templates.Set, now func() time.Time) *Workspace {
	t := now()
	return &Workspace{
		ID:        id,
		Owner:     owner,
		CreatedAt: t,
		now:       now,
		lastUsed:  t,
		templates: set,
		entries:   make(map[string]*Entry),
	}
}

// Touch records that the owning session used the workspace.
func (w *Workspace) Touch() {
	w.mu.Lock()
	w.lastUsed = w.now()
	w.mu.Unlock()
}

// LastUsed returns when the workspace was last touched or written.
func (w *Workspace) LastUsed() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastUsed
}

// busy reports whether a generation currently holds the run lock.
func (w *Workspace) busy() bool {
	if w.run.TryLock() {
		w.run.Unlock()
		return false
	}
	return true
}

// Templates returns the active template set.
func (w *Workspace) Templates() templates.Set {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.templates
}

// SetTemplates replaces the active template set. Later generations use it.
func (w *Workspace) SetTemplates(s templates.Set) {
	w.mu.Lock()
	w.templates = s
	w.mu.Unlock()
}

// Entries returns a copy of every entry in first-seen order.
func (w *Workspace) Entries() []Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Entry, 0, len(w.order))
	for _, u := range w.order {
		out = append(out, copyEntry(w.entries[u]))
	}
	return out
}

// Entry returns a copy of the entry for url.
func (w *Workspace) Entry(url string) (Entry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entries[url]
	if !ok {
		return Entry{}, false
	}
	return copyEntry(e), true
}

// Clear removes every result, keeping the templates.
func (w *Workspace) Clear() {
	w.mu.Lock()
	w.entries = make(map[string]*Entry)
	w.order = nil
	w.mu.Unlock()
}

// put replaces the outcome for o.URL and o.Style.
func (w *Workspace) put(o Outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastUsed = w.now()
	e := w.entryLocked(o.URL)
	if o.Style == llm.StyleFit {
		fit := o
		e.Fit = &fit
		return
	}
	e.Hook = o
}

func (w *Workspace) setPreview(url string, p *sitemeta.Preview) {
	w.mu.Lock()
	w.entryLocked(url).Preview = p
	w.mu.Unlock()
}

func (w *Workspace) hasPreview(url string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entries[url]
	return ok && e.Preview != nil
}

func (w *Workspace) entryLocked(url string) *Entry {
	e, ok := w.entries[url]
	if !ok {
		e = &Entry{URL: url, Hook: Outcome{URL: url, Style: llm.StyleHook, State: StateNone}}
		w.entries[url] = e
		w.order = append(w.order, url)
	}
	return e
}

func copyEntry(e *Entry) Entry {
	c := *e
	if e.Fit != nil {
		fit := *e.Fit
		c.Fit = &fit
	}
	if e.Preview != nil {
		p := *e.Preview
		c.Preview = &p
	}
	return c
}
