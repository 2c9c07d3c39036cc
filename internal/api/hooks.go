package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/hookline/internal/auth"
	"github.com/joestump/hookline/internal/hooks"
)

type hooksAPIHandler struct {
	svc *hooks.Service
}

func registerHookRoutes(r chi.Router, svc *hooks.Service) {
	h := &hooksAPIHandler{svc: svc}
	r.Get("/hooks", h.List)
	r.Post("/hooks", h.Run)
	r.Post("/hooks/regenerate", h.Regenerate)
	r.Post("/hooks/fit", h.Fit)
	r.Delete("/hooks", h.Clear)
}

// List returns every result in the caller's session workspace.
// GET /api/v1/hooks
//
// @Summary      List session results
// @Description  Returns the hooks and fit analyses generated in this session, in first-seen URL order.
// @Tags         Hooks
// @Produce      json
// @Success      200  {object}  EntryListResponse
// @Failure      401  {object}  ErrorResponse
// @Security     SessionCookie
// @Router       /hooks [get]
func (h *hooksAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	ws := auth.WorkspaceFromContext(r.Context())
	entries := ws.Entries()
	resp := EntryListResponse{Entries: make([]EntryResponse, 0, len(entries)), Configured: h.svc.Configured()}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Run generates a hook for each URL, one at a time, in order.
// POST /api/v1/hooks
//
// @Summary      Generate hooks
// @Description  Generates a hook for each URL sequentially. A failed URL is reported in its outcome and does not stop the batch.
// @Tags         Hooks
// @Accept       json
// @Produce      json
// @Param        body  body      RunHooksRequest  true  "URLs to process"
// @Success      200   {object}  RunHooksResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Security     SessionCookie
// @Router       /hooks [post]
func (h *hooksAPIHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunHooksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return
	}
	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "urls must contain at least one URL", "BAD_REQUEST")
		return
	}

	ws := auth.WorkspaceFromContext(r.Context())
	outcomes := h.svc.RunBatch(context.WithoutCancel(r.Context()), ws, urls)
	resp := RunHooksResponse{Outcomes: make([]OutcomeResponse, 0, len(outcomes))}
	for _, o := range outcomes {
		resp.Outcomes = append(resp.Outcomes, toOutcomeResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Regenerate re-runs the hook for one URL, replacing the previous result.
// POST /api/v1/hooks/regenerate
//
// @Summary      Regenerate a hook
// @Tags         Hooks
// @Accept       json
// @Produce      json
// @Param        body  body      URLRequest  true  "URL to regenerate"
// @Success      200   {object}  OutcomeResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Security     SessionCookie
// @Router       /hooks/regenerate [post]
func (h *hooksAPIHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	url, ok := h.singleURL(w, r)
	if !ok {
		return
	}
	o := h.svc.Regenerate(context.WithoutCancel(r.Context()), auth.WorkspaceFromContext(r.Context()), url)
	writeJSON(w, http.StatusOK, toOutcomeResponse(o))
}

// Fit produces the service-fit analysis for one URL.
// POST /api/v1/hooks/fit
//
// @Summary      Analyze service fit
// @Description  Renders the fit template for the URL and returns a Markdown recommendation.
// @Tags         Hooks
// @Accept       json
// @Produce      json
// @Param        body  body      URLRequest  true  "URL to analyze"
// @Success      200   {object}  OutcomeResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Security     SessionCookie
// @Router       /hooks/fit [post]
func (h *hooksAPIHandler) Fit(w http.ResponseWriter, r *http.Request) {
	url, ok := h.singleURL(w, r)
	if !ok {
		return
	}
	o := h.svc.AnalyzeFit(context.WithoutCancel(r.Context()), auth.WorkspaceFromContext(r.Context()), url)
	writeJSON(w, http.StatusOK, toOutcomeResponse(o))
}

// Clear removes every result from the session workspace.
// DELETE /api/v1/hooks
//
// @Summary      Clear session results
// @Tags         Hooks
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Security     SessionCookie
// @Router       /hooks [delete]
func (h *hooksAPIHandler) Clear(w http.ResponseWriter, r *http.Request) {
	auth.WorkspaceFromContext(r.Context()).Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *hooksAPIHandler) singleURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req URLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return "", false
	}
	url := strings.TrimSpace(req.URL)
	if err := hooks.ValidateURL(url); err != nil {
		writeAppError(w, err)
		return "", false
	}
	return url, true
}
