package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/auth"
	"github.com/joestump/hookline/internal/hooks"
)

// HooksPage is the template data for the hooks view.
type HooksPage struct {
	BasePage
	Entries []hooks.Entry
	// Rejected holds submitted lines that were not usable URLs.
	Rejected    []hooks.Outcome
	Input       string
	ConfigError error
	Flash       *Flash
}

// HooksHandler serves the URL form and the per-URL results.
type HooksHandler struct {
	svc *hooks.Service
}

// NewHooksHandler creates a new HooksHandler.
func NewHooksHandler(svc *hooks.Service) *HooksHandler {
	return &HooksHandler{svc: svc}
}

func (h *HooksHandler) page(r *http.Request) HooksPage {
	ws := auth.WorkspaceFromContext(r.Context())
	return HooksPage{
		BasePage:    newBasePage(r, auth.UsernameFromContext(r.Context())),
		Entries:     ws.Entries(),
		ConfigError: h.svc.ConfigError(),
	}
}

// Show renders GET /hooks.
func (h *HooksHandler) Show(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, "hooks.html", h.page(r))
}

// Run handles POST /hooks: one URL per line of the "urls" field, processed in
// order. HTMX requests get the results fragment back.
func (h *HooksHandler) Run(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	input := r.PostFormValue("urls")
	urls := hooks.ParseURLs(input)

	if len(urls) == 0 {
		data := h.page(r)
		data.Flash = &Flash{Type: "warning", Message: "Paste at least one website URL, one per line."}
		h.respond(w, r, data)
		return
	}

	outcomes := h.svc.RunBatch(detach(r), auth.WorkspaceFromContext(r.Context()), urls)

	data := h.page(r)
	data.Input = input
	var failed int
	for _, o := range outcomes {
		switch {
		case apperr.KindOf(o.Err) == apperr.KindInput:
			data.Rejected = append(data.Rejected, o)
		case o.State == hooks.StateFailed:
			failed++
		}
	}
	if failed+len(data.Rejected) > 0 {
		data.Flash = &Flash{Type: "warning", Message: summary(len(outcomes), failed+len(data.Rejected))}
	} else {
		data.Flash = &Flash{Type: "success", Message: summary(len(outcomes), 0)}
	}
	h.respond(w, r, data)
}

// Regenerate handles POST /hooks/regenerate for the "url" field.
func (h *HooksHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	h.single(w, r, h.svc.Regenerate)
}

// Fit handles POST /hooks/fit for the "url" field.
func (h *HooksHandler) Fit(w http.ResponseWriter, r *http.Request) {
	h.single(w, r, h.svc.AnalyzeFit)
}

// Clear handles POST /hooks/clear.
func (h *HooksHandler) Clear(w http.ResponseWriter, r *http.Request) {
	auth.WorkspaceFromContext(r.Context()).Clear()
	if isHTMX(r) {
		renderFragment(w, http.StatusOK, "results", h.page(r))
		return
	}
	http.Redirect(w, r, "/hooks", http.StatusSeeOther)
}

type singleRun func(ctx context.Context, ws *hooks.Workspace, url string) hooks.Outcome

func (h *HooksHandler) single(w http.ResponseWriter, r *http.Request, run singleRun) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	url := strings.TrimSpace(r.PostFormValue("url"))
	if err := hooks.ValidateURL(url); err != nil {
		http.Error(w, apperr.UserMessage(err), http.StatusBadRequest)
		return
	}
	ws := auth.WorkspaceFromContext(r.Context())
	run(detach(r), ws, url)

	if isHTMX(r) {
		entry, _ := ws.Entry(url)
		renderFragment(w, http.StatusOK, "entry", entry)
		return
	}
	http.Redirect(w, r, "/hooks", http.StatusSeeOther)
}

func (h *HooksHandler) respond(w http.ResponseWriter, r *http.Request, data HooksPage) {
	if isHTMX(r) {
		renderFragment(w, http.StatusOK, "results", data)
		return
	}
	renderPage(w, http.StatusOK, "hooks.html", data)
}

// detach drops the request's cancellation so an issued generation runs to
// completion or failure after the client goes away. llm.timeout still bounds
// each call.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func summary(total, failed int) string {
	noun := "URLs"
	if total == 1 {
		noun = "URL"
	}
	if failed == 0 {
		return fmt.Sprintf("Processed %d %s.", total, noun)
	}
	return fmt.Sprintf("Processed %d %s; %d failed. Use Regenerate to retry a URL.", total, noun, failed)
}
