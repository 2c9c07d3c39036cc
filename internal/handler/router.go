package handler

import (
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/joestump/hookline/docs/swagger"
	"github.com/joestump/hookline/internal/api"
	"github.com/joestump/hookline/internal/auth"
	"github.com/joestump/hookline/internal/hooks"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/templates"
	"github.com/joestump/hookline/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	SessionManager *scs.SessionManager
	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.Middleware
	Service        *hooks.Service
	TemplateStore  templates.Store
	StoreLabel     string
	OIDCEnabled    bool
	Logger         *logger.Logger
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// Probes and metrics skip the session store.
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// Static assets (embedded). Use fs.Sub so the file server sees
	// css/app.css directly, not static/css/... paths.
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))

	r.Get("/api/docs/*", httpSwagger.WrapHandler)

	r.Group(func(r chi.Router) {
		r.Use(deps.SessionManager.LoadAndSave)

		r.Get("/", NewLandingHandler(deps.AuthMiddleware).Index)
		r.Post("/theme", NewThemeHandler().Toggle)

		r.Get("/auth/login", deps.AuthHandlers.LoginForm)
		r.Post("/auth/login", deps.AuthHandlers.Login)
		r.Post("/auth/logout", deps.AuthHandlers.Logout)
		if deps.OIDCEnabled {
			r.Get("/auth/oidc", deps.AuthHandlers.OIDCLogin)
			r.Get("/auth/callback", deps.AuthHandlers.OIDCCallback)
		}

		hooksWeb := NewHooksHandler(deps.Service)
		settings := NewSettingsHandler(deps.TemplateStore, deps.StoreLabel, log)
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			r.Get("/hooks", hooksWeb.Show)
			r.Post("/hooks", hooksWeb.Run)
			r.Post("/hooks/regenerate", hooksWeb.Regenerate)
			r.Post("/hooks/fit", hooksWeb.Fit)
			r.Post("/hooks/clear", hooksWeb.Clear)

			r.Get("/settings/templates", settings.Show)
			r.Post("/settings/templates", settings.Save)
			r.Post("/settings/templates/reset", settings.Reset)
		})

		r.Mount("/api/v1", api.NewAPIRouter(api.Deps{
			Auth:          deps.AuthMiddleware.RequireAPIAuth,
			Service:       deps.Service,
			TemplateStore: deps.TemplateStore,
			Logger:        log,
		}))
	})

	return r
}
