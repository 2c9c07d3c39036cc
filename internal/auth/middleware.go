package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/hookline/internal/hooks"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/templates"
)

type contextKey string

const (
	UsernameContextKey  contextKey = "username"
	WorkspaceContextKey contextKey = "workspace"
)

// Workspaces opens and drops the per-session workspaces. Both the middleware
// and the login handlers use it so the workspace id in the session always
// names a live workspace.
type Workspaces struct {
	sessions  *scs.SessionManager
	registry  *hooks.Registry
	templates templates.Store
	log       *logger.Logger
}

func NewWorkspaces(sm *scs.SessionManager, reg *hooks.Registry, st templates.Store, log *logger.Logger) *Workspaces {
	if log == nil {
		log = logger.Nop()
	}
	return &Workspaces{sessions: sm, registry: reg, templates: st, log: log}
}

// Start renews the session token, records the identity, and opens a fresh
// workspace with the stored (or default) templates.
func (w *Workspaces) Start(ctx context.Context, id *Identity) (*hooks.Workspace, error) {
	if err := w.sessions.RenewToken(ctx); err != nil {
		return nil, err
	}
	if old := w.sessions.GetString(ctx, SessionWorkspaceKey); old != "" {
		w.registry.Drop(old)
	}
	ws := w.registry.Open(id.Username, templates.LoadOrDefault(ctx, w.templates, w.log))
	w.sessions.Put(ctx, SessionUsernameKey, id.Username)
	w.sessions.Put(ctx, SessionWorkspaceKey, ws.ID)
	w.log.Info("session started", "username", id.Username, "method", id.Method, "workspace", ws.ID)
	return ws, nil
}

// End drops the session's workspace and destroys the session.
func (w *Workspaces) End(ctx context.Context) error {
	if id := w.sessions.GetString(ctx, SessionWorkspaceKey); id != "" {
		w.registry.Drop(id)
	}
	return w.sessions.Destroy(ctx)
}

// current returns the signed-in username and its workspace. A session that
// outlived a restart or a registry sweep gets a new workspace.
func (w *Workspaces) current(ctx context.Context) (string, *hooks.Workspace) {
	username := w.sessions.GetString(ctx, SessionUsernameKey)
	if username == "" {
		return "", nil
	}
	if ws, ok := w.registry.Get(w.sessions.GetString(ctx, SessionWorkspaceKey)); ok && ws.Owner == username {
		ws.Touch()
		return username, ws
	}
	ws := w.registry.Open(username, templates.LoadOrDefault(ctx, w.templates, w.log))
	w.sessions.Put(ctx, SessionWorkspaceKey, ws.ID)
	return username, ws
}

// Middleware provides HTTP middleware for authentication.
type Middleware struct {
	workspaces *Workspaces
}

// NewMiddleware creates a new auth Middleware.
func NewMiddleware(ws *Workspaces) *Middleware {
	return &Middleware{workspaces: ws}
}

// RequireAuth redirects to /auth/login if no valid session exists.
// On success, sets the username and *hooks.Workspace on the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ws := m.workspaces.current(r.Context())
		if ws == nil {
			http.Redirect(w, r, "/auth/login?redirect="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), username, ws)))
	})
}

// RequireAPIAuth is RequireAuth for JSON endpoints: it answers 401 instead of
// redirecting.
func (m *Middleware) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ws := m.workspaces.current(r.Context())
		if ws == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "authentication required",
				"code":  "UNAUTHORIZED",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), username, ws)))
	})
}

// SignedIn reports whether the request carries a signed-in session.
func (m *Middleware) SignedIn(r *http.Request) bool {
	return m.workspaces.sessions.GetString(r.Context(), SessionUsernameKey) != ""
}

func withSession(ctx context.Context, username string, ws *hooks.Workspace) context.Context {
	ctx = context.WithValue(ctx, UsernameContextKey, username)
	return context.WithValue(ctx, WorkspaceContextKey, ws)
}

// UsernameFromContext retrieves the signed-in username from the context.
func UsernameFromContext(ctx context.Context) string {
	u, _ := ctx.Value(UsernameContextKey).(string)
	return u
}

// WorkspaceFromContext retrieves the session workspace from the context.
func WorkspaceFromContext(ctx context.Context) *hooks.Workspace {
	ws, _ := ctx.Value(WorkspaceContextKey).(*hooks.Workspace)
	return ws
}

// ContextWithWorkspace attaches ws to ctx, for handler tests.
func ContextWithWorkspace(ctx context.Context, username string, ws *hooks.Workspace) context.Context {
	return withSession(ctx, username, ws)
}
