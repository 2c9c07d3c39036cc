package handler

import (
	"net/http"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/auth"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/templates"
)

// SettingsPage is the template data for the template editor.
type SettingsPage struct {
	BasePage
	Hook       string
	Fit        string
	StoreLabel string
	Flash      *Flash
}

// SettingsHandler edits the hook and fit templates.
type SettingsHandler struct {
	store      templates.Store
	storeLabel string
	log        *logger.Logger
}

// NewSettingsHandler creates a new SettingsHandler. label describes where
// templates are saved, e.g. a file path or "database".
func NewSettingsHandler(st templates.Store, label string, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{store: st, storeLabel: label, log: log}
}

func (h *SettingsHandler) page(r *http.Request, set templates.Set) SettingsPage {
	return SettingsPage{
		BasePage:   newBasePage(r, auth.UsernameFromContext(r.Context())),
		Hook:       set.Hook,
		Fit:        set.Fit,
		StoreLabel: h.storeLabel,
	}
}

// Show renders GET /settings/templates with the session's active templates.
func (h *SettingsHandler) Show(w http.ResponseWriter, r *http.Request) {
	ws := auth.WorkspaceFromContext(r.Context())
	renderPage(w, http.StatusOK, "settings.html", h.page(r, ws.Templates()))
}

// Save handles POST /settings/templates.
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	set := templates.Set{Hook: r.PostFormValue("hook"), Fit: r.PostFormValue("fit")}
	h.apply(w, r, set, "Templates saved. New generations use them.")
}

// Reset handles POST /settings/templates/reset.
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, templates.Defaults(), "Templates reset to the built-in defaults.")
}

// apply saves set and, only once it is stored, makes it the session's active
// set. Failures re-render the form with the submitted text.
func (h *SettingsHandler) apply(w http.ResponseWriter, r *http.Request, set templates.Set, okMsg string) {
	data := h.page(r, set)
	if err := templates.SaveValidated(r.Context(), h.store, set); err != nil {
		status := http.StatusUnprocessableEntity
		if apperr.KindOf(err) != apperr.KindTemplateFormat {
			status = http.StatusInternalServerError
			h.log.Error("template save failed", "error", err)
		}
		data.Flash = &Flash{Type: "error", Message: apperr.UserMessage(err)}
		renderPage(w, status, "settings.html", data)
		return
	}
	auth.WorkspaceFromContext(r.Context()).SetTemplates(set)
	data.Flash = &Flash{Type: "success", Message: okMsg}
	renderPage(w, http.StatusOK, "settings.html", data)
}
