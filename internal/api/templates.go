package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/auth"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/templates"
)

type templatesAPIHandler struct {
	store templates.Store
	log   *logger.Logger
}

func registerTemplateRoutes(r chi.Router, st templates.Store, log *logger.Logger) {
	h := &templatesAPIHandler{store: st, log: log}
	r.Get("/templates", h.Get)
	r.Put("/templates", h.Update)
}

// Get returns the templates active in the caller's session.
// GET /api/v1/templates
//
// @Summary      Get templates
// @Tags         Templates
// @Produce      json
// @Success      200  {object}  TemplatesResponse
// @Failure      401  {object}  ErrorResponse
// @Security     SessionCookie
// @Router       /templates [get]
func (h *templatesAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws := auth.WorkspaceFromContext(r.Context())
	writeJSON(w, http.StatusOK, toTemplatesResponse(ws.Templates()))
}

// Update validates and saves both templates, then makes them active for the
// session.
// PUT /api/v1/templates
//
// @Summary      Update templates
// @Description  The hook template may use {url} and {examples}; the fit template may use {url}. Double a brace to write it literally.
// @Tags         Templates
// @Accept       json
// @Produce      json
// @Param        body  body      UpdateTemplatesRequest  true  "New templates"
// @Success      200   {object}  TemplatesResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     SessionCookie
// @Router       /templates [put]
func (h *templatesAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateTemplatesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return
	}
	set := templates.Set{Hook: req.Hook, Fit: req.Fit}
	if err := templates.SaveValidated(r.Context(), h.store, set); err != nil {
		if apperr.KindOf(err) == apperr.KindPersistence {
			h.log.Error("template save failed", "error", err)
		}
		writeAppError(w, err)
		return
	}
	auth.WorkspaceFromContext(r.Context()).SetTemplates(set)
	writeJSON(w, http.StatusOK, toTemplatesResponse(set))
}
