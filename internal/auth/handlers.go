package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/metrics"
)

const (
	cookieState        = "__auth_state"
	cookieCodeVerifier = "__auth_pkce"
	cookieRedirect     = "__auth_redirect"

	defaultRedirect = "/hooks"
)

// LoginPage is the data for the login form.
type LoginPage struct {
	Error           string
	Username        string
	Redirect        string
	PasswordEnabled bool
	OIDCEnabled     bool
}

// LoginRenderer writes the login page with the given status.
type LoginRenderer func(w http.ResponseWriter, r *http.Request, status int, page LoginPage)

// HandlersDeps configures Handlers. Passwords and OIDC may each be nil.
type HandlersDeps struct {
	Passwords       Provider
	OIDC            *OIDCProvider
	Workspaces      *Workspaces
	Render          LoginRenderer
	InsecureCookies bool
	Logger          *logger.Logger
}

// Handlers provides HTTP handlers for password and OIDC sign-in.
type Handlers struct {
	passwords  Provider
	oidc       *OIDCProvider
	workspaces *Workspaces
	render     LoginRenderer
	secure     bool
	log        *logger.Logger
}

func NewHandlers(d HandlersDeps) *Handlers {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{
		passwords:  d.Passwords,
		oidc:       d.OIDC,
		workspaces: d.Workspaces,
		render:     d.Render,
		secure:     !d.InsecureCookies,
		log:        log,
	}
}

func (h *Handlers) page(r *http.Request) LoginPage {
	return LoginPage{
		Redirect:        safeRedirect(r.URL.Query().Get("redirect")),
		PasswordEnabled: h.passwords != nil,
		OIDCEnabled:     h.oidc != nil,
	}
}

// LoginForm shows the sign-in page, or sends a signed-in user on.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.workspaces.sessions.GetString(r.Context(), SessionUsernameKey) != "" {
		http.Redirect(w, r, safeRedirect(r.URL.Query().Get("redirect")), http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, h.page(r))
}

// Login checks the submitted username and password and starts a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.passwords == nil {
		http.Error(w, "password login is disabled", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	redirect := safeRedirect(r.PostFormValue("redirect"))

	id, err := h.passwords.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		h.log.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		page := h.page(r)
		page.Username = username
		page.Redirect = redirect
		page.Error = "Invalid username or password."
		if apperr.KindOf(err) != apperr.KindAuth {
			page.Error = apperr.UserMessage(err)
		}
		h.render(w, r, http.StatusUnauthorized, page)
		return
	}

	if _, err := h.workspaces.Start(r.Context(), id); err != nil {
		h.log.Error("session start failed", "username", username, "error", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// Logout drops the workspace, destroys the session and returns to the login page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.workspaces.End(r.Context()); err != nil {
		http.Error(w, "logout error", http.StatusInternalServerError)
		return
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/auth/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// OIDCLogin initiates the authorization code flow with PKCE.
func (h *Handlers) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		http.NotFound(w, r)
		return
	}
	state, err := GenerateState()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.setPreAuthCookie(w, cookieState, state)
	h.setPreAuthCookie(w, cookieCodeVerifier, verifier)
	h.setPreAuthCookie(w, cookieRedirect, safeRedirect(r.URL.Query().Get("redirect")))

	http.Redirect(w, r, h.oidc.AuthCodeURL(state, challenge), http.StatusFound)
}

// OIDCCallback completes the flow, checks the allow-list and starts a session.
func (h *Handlers) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		http.NotFound(w, r)
		return
	}
	stateCookie, err := r.Cookie(cookieState)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	verifierCookie, err := r.Cookie(cookieCodeVerifier)
	if err != nil {
		http.Error(w, "missing code verifier", http.StatusBadRequest)
		return
	}

	idToken, err := h.oidc.Exchange(r.Context(), r.URL.Query().Get("code"), verifierCookie.Value)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		h.log.Warn("oidc exchange failed", "error", err)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	var claims struct {
		Email             string `json:"email"`
		EmailVerified     *bool  `json:"email_verified"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil || claims.Email == "" {
		http.Error(w, "invalid claims", http.StatusUnauthorized)
		return
	}
	if (claims.EmailVerified != nil && !*claims.EmailVerified) || !h.oidc.Allowed(claims.Email) {
		metrics.LoginsTotal.WithLabelValues("denied").Inc()
		h.log.Warn("oidc identity not allowed", "email", claims.Email)
		page := h.page(r)
		page.Error = "Your account is not allowed to use this tool."
		h.render(w, r, http.StatusForbidden, page)
		return
	}

	id := &Identity{Username: claims.Email, Email: claims.Email, Method: "oidc"}
	if _, err := h.workspaces.Start(r.Context(), id); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	redirect := defaultRedirect
	if c, err := r.Cookie(cookieRedirect); err == nil {
		redirect = safeRedirect(c.Value)
	}
	clearCookie(w, cookieState)
	clearCookie(w, cookieCodeVerifier)
	clearCookie(w, cookieRedirect)

	http.Redirect(w, r, redirect, http.StatusFound)
}

// safeRedirect only allows local absolute paths.
func safeRedirect(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return defaultRedirect
	}
	return p
}

func (h *Handlers) setPreAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   300, // 5 minutes
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
