package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/hookline/internal/hooks"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/templates"
)

// Deps holds all dependencies required to build the API router.
type Deps struct {
	// Auth resolves the session and attaches the workspace; it must answer
	// 401 for anonymous requests.
	Auth          func(http.Handler) http.Handler
	Service       *hooks.Service
	TemplateStore templates.Store
	Logger        *logger.Logger
}

// NewAPIRouter creates a chi sub-router for /api/v1.
// All routes require a signed-in session and return application/json.
func NewAPIRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(jsonContentType)
	r.Use(deps.Auth)

	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	registerHookRoutes(r, deps.Service)
	registerTemplateRoutes(r, deps.TemplateStore, log)

	return r
}

// jsonContentType is a middleware that sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
