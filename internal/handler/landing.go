package handler

import (
	"net/http"

	"github.com/joestump/hookline/internal/auth"
)

// LandingHandler serves GET / and the login page.
type LandingHandler struct {
	mw *auth.Middleware
}

// NewLandingHandler creates a new LandingHandler.
func NewLandingHandler(mw *auth.Middleware) *LandingHandler { return &LandingHandler{mw: mw} }

// Index sends signed-in users to /hooks and everyone else to the login page.
func (h *LandingHandler) Index(w http.ResponseWriter, r *http.Request) {
	if h.mw.SignedIn(r) {
		http.Redirect(w, r, "/hooks", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

// LoginPage is the template data for the sign-in form.
type LoginPage struct {
	BasePage
	Form auth.LoginPage
}

// RenderLogin renders login.html; it is handed to auth.Handlers.
func RenderLogin(w http.ResponseWriter, r *http.Request, status int, page auth.LoginPage) {
	renderPage(w, status, "login.html", LoginPage{BasePage: newBasePage(r, ""), Form: page})
}

// Healthz answers liveness probes.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
