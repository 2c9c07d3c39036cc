package hooks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/llm"
	"github.com/joestump/hookline/internal/sitemeta"
	"github.com/joestump/hookline/internal/templates"
)

// fakeGenerator answers from a per-URL script and records every request.
type fakeGenerator struct {
	mu      sync.Mutex
	replies map[string][]reply
	calls   []llm.Request
	during  func(req llm.Request)
}

type reply struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	var r reply
	if q := f.replies[req.URL]; len(q) > 0 {
		r = q[0]
		f.replies[req.URL] = q[1:]
	} else {
		r = reply{text: "hook for " + req.URL}
	}
	during := f.during
	f.mu.Unlock()
	if during != nil {
		during(req)
	}
	return r.text, r.err
}

func newTestService(gen llm.Generator) *Service {
	return NewService(Deps{Generator: gen, Examples: "EXAMPLES"})
}

func newTestWorkspace(set templates.Set) *Workspace {
	return NewRegistry().Open("alice", set)
}

func TestRunBatch_FailureDoesNotAbort(t *testing.T) {
	const a, b = "https://a.example", "https://b.example"
	gen := &fakeGenerator{replies: map[string][]reply{
		a: {{err: apperr.Generation("openai stream", "connection reset", nil)}},
		b: {{text: "  Loved the new menu.  "}},
	}}
	ws := newTestWorkspace(templates.Defaults())

	out := newTestService(gen).RunBatch(context.Background(), ws, []string{a, b})

	if len(out) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(out))
	}
	if out[0].State != StateFailed || !errors.Is(out[0].Err, apperr.ErrGeneration) {
		t.Errorf("A = %+v, want Failed generation error", out[0])
	}
	if out[1].State != StateSucceeded || out[1].Text != "Loved the new menu." {
		t.Errorf("B = %+v, want Succeeded with trimmed text", out[1])
	}
	if len(gen.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(gen.calls))
	}

	entries := ws.Entries()
	if len(entries) != 2 || entries[0].URL != a || entries[1].URL != b {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Hook.State != StateFailed || entries[1].Hook.State != StateSucceeded {
		t.Errorf("stored states = %s, %s", entries[0].Hook.State, entries[1].Hook.State)
	}
}

func TestRunBatch_RendersHookTemplate(t *testing.T) {
	gen := &fakeGenerator{}
	ws := newTestWorkspace(templates.Set{Hook: "Hook for {url} in the style of:\n{examples}", Fit: "Fit {url}"})

	newTestService(gen).RunBatch(context.Background(), ws, []string{"https://acme.test"})

	if len(gen.calls) != 1 {
		t.Fatalf("calls = %d", len(gen.calls))
	}
	got := gen.calls[0]
	if got.Prompt != "Hook for https://acme.test in the style of:\nEXAMPLES" {
		t.Errorf("prompt = %q", got.Prompt)
	}
	if got.Style != llm.StyleHook || got.URL != "https://acme.test" {
		t.Errorf("request = %+v", got)
	}
}

func TestRunBatch_DuplicatesAndInvalidLines(t *testing.T) {
	const u = "https://dup.example"
	gen := &fakeGenerator{replies: map[string][]reply{u: {{text: "first"}, {text: "second"}}}}
	ws := newTestWorkspace(templates.Defaults())

	out := newTestService(gen).RunBatch(context.Background(), ws, []string{u, "not a url", u})

	if len(out) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(out))
	}
	if apperr.KindOf(out[1].Err) != apperr.KindInput {
		t.Errorf("line 2 err = %v, want KindInput", out[1].Err)
	}
	if len(gen.calls) != 2 {
		t.Errorf("calls = %d, want 2 (invalid line skipped)", len(gen.calls))
	}
	e, ok := ws.Entry(u)
	if !ok || e.Hook.Text != "second" {
		t.Errorf("entry = %+v, want latest result", e)
	}
	if n := len(ws.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestRunBatch_TemplateErrorBeforeNetwork(t *testing.T) {
	gen := &fakeGenerator{}
	ws := newTestWorkspace(templates.Set{Hook: "Hook for {company}", Fit: "Fit {url}"})

	out := newTestService(gen).RunBatch(context.Background(), ws, []string{"https://a.example", "https://b.example"})

	for i, o := range out {
		if o.State != StateFailed || !errors.Is(o.Err, apperr.ErrTemplateFormat) {
			t.Errorf("outcome %d = %+v, want template format failure", i, o)
		}
		if !strings.Contains(apperr.UserMessage(o.Err), "Settings") {
			t.Errorf("message %q should point at Settings", apperr.UserMessage(o.Err))
		}
	}
	if len(gen.calls) != 0 {
		t.Errorf("calls = %d, want none", len(gen.calls))
	}
}

func TestRunBatch_NotConfigured(t *testing.T) {
	notConfigured := apperr.Auth("configure generator", "openai API key is not configured", nil)
	svc := NewService(Deps{GeneratorErr: notConfigured})
	ws := newTestWorkspace(templates.Defaults())

	if svc.Configured() {
		t.Error("Configured() = true with no generator")
	}
	out := svc.RunBatch(context.Background(), ws, []string{"https://a.example"})

	if out[0].State != StateFailed || apperr.KindOf(out[0].Err) != apperr.KindAuth {
		t.Fatalf("outcome = %+v, want KindAuth failure", out[0])
	}
	if !strings.Contains(apperr.UserMessage(out[0].Err), "not configured") {
		t.Errorf("message = %q", apperr.UserMessage(out[0].Err))
	}
}

func TestRegenerate_OverwritesThroughGenerating(t *testing.T) {
	const u = "https://acme.test"
	gen := &fakeGenerator{replies: map[string][]reply{u: {{text: "old hook"}, {text: "new hook"}}}}
	svc := newTestService(gen)
	ws := newTestWorkspace(templates.Defaults())

	svc.RunBatch(context.Background(), ws, []string{u})
	if e, _ := ws.Entry(u); e.Hook.State != StateSucceeded {
		t.Fatalf("state after batch = %s", e.Hook.State)
	}

	var seen State
	gen.during = func(llm.Request) {
		e, _ := ws.Entry(u)
		seen = e.Hook.State
	}
	o := svc.Regenerate(context.Background(), ws, u)

	if seen != StateGenerating {
		t.Errorf("state during call = %s, want %s", seen, StateGenerating)
	}
	if o.State != StateSucceeded || o.Text != "new hook" {
		t.Errorf("outcome = %+v", o)
	}
	e, _ := ws.Entry(u)
	if e.Hook.Text != "new hook" || strings.Contains(e.Hook.Text, "old") {
		t.Errorf("stored text = %q, want replaced", e.Hook.Text)
	}
}

func TestRegenerate_AfterFailureClearsError(t *testing.T) {
	const u = "https://acme.test"
	gen := &fakeGenerator{replies: map[string][]reply{u: {{err: errors.New("boom")}, {text: "ok now"}}}}
	svc := newTestService(gen)
	ws := newTestWorkspace(templates.Defaults())

	first := svc.RunBatch(context.Background(), ws, []string{u})
	if apperr.KindOf(first[0].Err) != apperr.KindGeneration {
		t.Fatalf("first err = %v, want plain errors classified as generation", first[0].Err)
	}
	o := svc.Regenerate(context.Background(), ws, u)
	if o.State != StateSucceeded || o.Err != nil {
		t.Errorf("outcome = %+v", o)
	}
}

func TestAnalyzeFit_IndependentOfHook(t *testing.T) {
	const u = "https://acme.test"
	gen := &fakeGenerator{replies: map[string][]reply{u: {{err: errors.New("hook failed")}, {text: "## SEO\nYes."}}}}
	svc := newTestService(gen)
	ws := newTestWorkspace(templates.Set{Hook: "H {url}", Fit: "Fit for {url}"})

	svc.RunBatch(context.Background(), ws, []string{u})
	o := svc.AnalyzeFit(context.Background(), ws, u)

	if o.State != StateSucceeded || o.Style != llm.StyleFit || o.Text != "## SEO\nYes." {
		t.Fatalf("fit = %+v", o)
	}
	if gen.calls[1].Prompt != "Fit for https://acme.test" || gen.calls[1].Style != llm.StyleFit {
		t.Errorf("fit request = %+v", gen.calls[1])
	}
	e, _ := ws.Entry(u)
	if e.Hook.State != StateFailed || e.Fit == nil || e.Fit.State != StateSucceeded {
		t.Errorf("entry = %+v", e)
	}
}

func TestAnalyzeFit_LeavesUnrequestedHookEmpty(t *testing.T) {
	const u = "https://fit-only.test"
	gen := &fakeGenerator{replies: map[string][]reply{u: {{text: "## SEO"}}}}
	svc := newTestService(gen)
	ws := newTestWorkspace(templates.Defaults())

	svc.AnalyzeFit(context.Background(), ws, u)

	e, ok := ws.Entry(u)
	if !ok || e.Fit == nil || e.Fit.State != StateSucceeded {
		t.Fatalf("entry = %+v", e)
	}
	if e.Hook.State != StateNone || e.Hook.Done() {
		t.Errorf("hook state = %q, want none until a hook is requested", e.Hook.State)
	}

	svc.Regenerate(context.Background(), ws, u)
	if e, _ := ws.Entry(u); e.Hook.State != StateSucceeded || e.Hook.Text != "hook for "+u {
		t.Errorf("hook after regenerate = %+v", e.Hook)
	}
}

func TestService_CallsNeverOverlap(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
	)
	gen := &fakeGenerator{}
	gen.during = func(llm.Request) {
		mu.Lock()
		inFlight++
		if inFlight > maxSeen {
			maxSeen = inFlight
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	}
	svc := newTestService(gen)
	ws := newTestWorkspace(templates.Defaults())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); svc.RunBatch(context.Background(), ws, []string{"https://a.example"}) }()
		go func() { defer wg.Done(); svc.AnalyzeFit(context.Background(), ws, "https://a.example") }()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent calls = %d, want 1", maxSeen)
	}
}

type stubPreviewer struct {
	calls int
	p     *sitemeta.Preview
	err   error
}

func (s *stubPreviewer) Fetch(_ context.Context, url string) (*sitemeta.Preview, error) {
	s.calls++
	return s.p, s.err
}

func TestRunBatch_Preview(t *testing.T) {
	const u = "https://acme.test"
	pv := &stubPreviewer{p: &sitemeta.Preview{URL: u, Title: "Acme"}}
	svc := NewService(Deps{Generator: &fakeGenerator{}, Previewer: pv})
	ws := newTestWorkspace(templates.Defaults())

	svc.RunBatch(context.Background(), ws, []string{u})
	svc.Regenerate(context.Background(), ws, u)

	e, _ := ws.Entry(u)
	if e.Preview == nil || e.Preview.Title != "Acme" {
		t.Errorf("preview = %+v", e.Preview)
	}
	if pv.calls != 1 {
		t.Errorf("preview fetched %d times, want once", pv.calls)
	}
}

func TestRunBatch_PreviewFailureIgnored(t *testing.T) {
	svc := NewService(Deps{Generator: &fakeGenerator{}, Previewer: &stubPreviewer{err: errors.New("dns")}})
	ws := newTestWorkspace(templates.Defaults())

	out := svc.RunBatch(context.Background(), ws, []string{"https://acme.test"})
	if out[0].State != StateSucceeded {
		t.Errorf("outcome = %+v", out[0])
	}
}
