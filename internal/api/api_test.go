package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/joestump/hookline/internal/api"
	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/auth"
	"github.com/joestump/hookline/internal/hooks"
	"github.com/joestump/hookline/internal/llm"
	"github.com/joestump/hookline/internal/templates"
)

// scriptedGenerator fails for URLs in fail and echoes the rest.
type scriptedGenerator struct {
	fail  map[string]bool
	calls int
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.calls++
	if g.fail[req.URL] {
		return "", apperr.Generation("openai stream", "stream ended before the model finished its answer", nil)
	}
	return string(req.Style) + " for " + req.URL, nil
}

// testEnv holds the API router and the pieces tests inspect.
type testEnv struct {
	Router    http.Handler
	Workspace *hooks.Workspace
	Store     *templates.FileStore
	Gen       *scriptedGenerator
}

func newTestEnv(t *testing.T, deps hooks.Deps) *testEnv {
	t.Helper()
	gen := &scriptedGenerator{fail: map[string]bool{"https://down.example": true}}
	if deps.Generator == nil && deps.GeneratorErr == nil {
		deps.Generator = gen
	}
	ws := hooks.NewRegistry().Open("alice", templates.Defaults())
	st := templates.NewFileStore(filepath.Join(t.TempDir(), "templates.yaml"))

	router := api.NewAPIRouter(api.Deps{
		Auth: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithWorkspace(r.Context(), "alice", ws)))
			})
		},
		Service:       hooks.NewService(deps),
		TemplateStore: st,
	})
	return &testEnv{Router: router, Workspace: ws, Store: st, Gen: gen}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestRunHooks(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{})
	rec := env.do(t, http.MethodPost, "/hooks", api.RunHooksRequest{URLs: []string{"https://down.example", " https://up.example ", ""}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decode[api.RunHooksResponse](t, rec)
	if len(resp.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(resp.Outcomes))
	}
	down, up := resp.Outcomes[0], resp.Outcomes[1]
	if down.State != "failed" || down.ErrorKind != "generation" || down.Error == "" {
		t.Errorf("down = %+v", down)
	}
	if up.State != "succeeded" || up.Text != "hook for https://up.example" {
		t.Errorf("up = %+v", up)
	}

	list := decode[api.EntryListResponse](t, env.do(t, http.MethodGet, "/hooks", nil))
	if len(list.Entries) != 2 || !list.Configured {
		t.Errorf("list = %+v", list)
	}
}

func TestRunHooks_BadRequests(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{})
	tests := []struct {
		name string
		body any
	}{
		{name: "not json", body: "nope"},
		{name: "unknown field", body: `{"links":["https://a.example"]}`},
		{name: "no urls", body: api.RunHooksRequest{URLs: []string{" "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/hooks", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if e := decode[api.ErrorResponse](t, rec); e.Code != "BAD_REQUEST" {
				t.Errorf("code = %q", e.Code)
			}
		})
	}
	if env.Gen.calls != 0 {
		t.Errorf("generator called %d times", env.Gen.calls)
	}
}

func TestFitAndRegenerate(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{})

	fit := decode[api.OutcomeResponse](t, env.do(t, http.MethodPost, "/hooks/fit", api.URLRequest{URL: "https://up.example"}))
	if fit.Style != "fit" || fit.State != "succeeded" || fit.Text != "fit for https://up.example" {
		t.Errorf("fit = %+v", fit)
	}
	regen := decode[api.OutcomeResponse](t, env.do(t, http.MethodPost, "/hooks/regenerate", api.URLRequest{URL: "https://up.example"}))
	if regen.Style != "hook" || regen.State != "succeeded" {
		t.Errorf("regen = %+v", regen)
	}

	rec := env.do(t, http.MethodPost, "/hooks/fit", api.URLRequest{URL: "up.example"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid url status = %d", rec.Code)
	}
	if e := decode[api.ErrorResponse](t, rec); e.Code != "INVALID_INPUT" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestRunHooks_NotConfigured(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{GeneratorErr: apperr.Auth("configure generator", "openai API key is not configured", nil)})
	resp := decode[api.RunHooksResponse](t, env.do(t, http.MethodPost, "/hooks", api.RunHooksRequest{URLs: []string{"https://up.example"}}))
	if o := resp.Outcomes[0]; o.ErrorKind != "auth" || o.State != "failed" {
		t.Errorf("outcome = %+v", o)
	}
	list := decode[api.EntryListResponse](t, env.do(t, http.MethodGet, "/hooks", nil))
	if list.Configured {
		t.Error("Configured = true")
	}
}

func TestClearHooks(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{})
	env.do(t, http.MethodPost, "/hooks", api.RunHooksRequest{URLs: []string{"https://up.example"}})
	if rec := env.do(t, http.MethodDelete, "/hooks", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if n := len(env.Workspace.Entries()); n != 0 {
		t.Errorf("entries = %d after clear", n)
	}
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{})

	got := decode[api.TemplatesResponse](t, env.do(t, http.MethodGet, "/templates", nil))
	if got.Hook != templates.Defaults().Hook {
		t.Errorf("initial hook template is not the default")
	}

	update := api.UpdateTemplatesRequest{Hook: "Hook {url} {examples}", Fit: "Fit {url}"}
	rec := env.do(t, http.MethodPut, "/templates", update)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if env.Workspace.Templates().Hook != update.Hook {
		t.Error("workspace templates not updated")
	}
	stored, err := env.Store.Load(context.Background())
	if err != nil || stored.Fit != update.Fit {
		t.Errorf("stored = %+v, %v", stored, err)
	}
}

func TestTemplates_RejectsInvalid(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{})
	rec := env.do(t, http.MethodPut, "/templates", api.UpdateTemplatesRequest{Hook: "Hook {company}", Fit: "Fit {url}"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if e := decode[api.ErrorResponse](t, rec); e.Code != "TEMPLATE_FORMAT" {
		t.Errorf("code = %q", e.Code)
	}
	if env.Workspace.Templates() != templates.Defaults() {
		t.Error("invalid templates were applied")
	}
	if _, err := env.Store.Load(context.Background()); !errors.Is(err, apperr.ErrPersistence) {
		t.Errorf("store should still be empty, Load err = %v", err)
	}
}

// contextGenerator fails once the caller's context is done.
type contextGenerator struct{}

func (contextGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Generation("openai request", "request aborted", err)
	}
	return string(req.Style) + " for " + req.URL, nil
}

func TestGenerationIgnoresClientCancel(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{Generator: contextGenerator{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, path := range []string{"/hooks/regenerate", "/hooks/fit"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"url":"https://up.example"}`)).WithContext(ctx)
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			env.Router.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
			}
			if o := decode[api.OutcomeResponse](t, rec); o.State != "succeeded" {
				t.Errorf("outcome = %+v, want succeeded", o)
			}
		})
	}
}

func TestListOmitsUnrequestedHook(t *testing.T) {
	env := newTestEnv(t, hooks.Deps{})
	if rec := env.do(t, http.MethodPost, "/hooks/fit", api.URLRequest{URL: "https://up.example"}); rec.Code != http.StatusOK {
		t.Fatalf("fit status = %d", rec.Code)
	}
	list := decode[api.EntryListResponse](t, env.do(t, http.MethodGet, "/hooks", nil))
	if len(list.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(list.Entries))
	}
	e := list.Entries[0]
	if e.Hook != nil {
		t.Errorf("hook = %+v, want omitted for a fit-only URL", e.Hook)
	}
	if e.Fit == nil || e.Fit.State != "succeeded" {
		t.Errorf("fit = %+v", e.Fit)
	}
}
