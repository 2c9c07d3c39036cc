package hooks

import (
	"context"
	"strings"
	"time"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/llm"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/metrics"
	"github.com/joestump/hookline/internal/prompt"
	"github.com/joestump/hookline/internal/sitemeta"
)

// Previewer fetches site metadata shown beside a hook.
type Previewer interface {
	Fetch(ctx context.Context, url string) (*sitemeta.Preview, error)
}

// Deps configures a Service.
type Deps struct {
	// Generator may be nil when no AI service is configured; every call then
	// fails with GeneratorErr (or a generic KindAuth error) without touching
	// the network.
	Generator    llm.Generator
	GeneratorErr error
	// Examples is substituted for {examples} in the hook template.
	Examples  string
	Previewer Previewer
	Logger    *logger.Logger
}

// Service runs generations for a workspace, one URL at a time.
type Service struct {
	gen      llm.Generator
	genErr   error
	examples string
	preview  Previewer
	log      *logger.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	genErr := d.GeneratorErr
	if d.Generator == nil && genErr == nil {
		genErr = apperr.Auth("configure generator", "no AI service is configured", nil)
	}
	return &Service{
		gen:      d.Generator,
		genErr:   genErr,
		examples: d.Examples,
		preview:  d.Previewer,
		log:      log,
		now:      time.Now,
	}
}

// Configured reports whether generation calls can reach a service.
func (s *Service) Configured() bool { return s.gen != nil }

// ConfigError returns the reason generation is unavailable, or nil.
func (s *Service) ConfigError() error {
	if s.gen != nil {
		return nil
	}
	return s.genErr
}

// RunBatch generates a hook for each URL in order and returns one outcome per
// input line, duplicates included. A failure is recorded against its URL and
// the loop moves on to the next one.
func (s *Service) RunBatch(ctx context.Context, ws *Workspace, urls []string) []Outcome {
	ws.run.Lock()
	defer ws.run.Unlock()

	for _, u := range urls {
		s.markPending(ws, u, llm.StyleHook)
	}
	out := make([]Outcome, 0, len(urls))
	for _, u := range urls {
		out = append(out, s.run(ctx, ws, u, llm.StyleHook))
	}
	return out
}

// Regenerate re-runs the hook for one URL. The previous result is replaced,
// never merged.
func (s *Service) Regenerate(ctx context.Context, ws *Workspace, url string) Outcome {
	ws.run.Lock()
	defer ws.run.Unlock()

	s.markPending(ws, url, llm.StyleHook)
	return s.run(ctx, ws, url, llm.StyleHook)
}

// AnalyzeFit produces the service-fit analysis for one URL, independently of
// its hook.
func (s *Service) AnalyzeFit(ctx context.Context, ws *Workspace, url string) Outcome {
	ws.run.Lock()
	defer ws.run.Unlock()

	s.markPending(ws, url, llm.StyleFit)
	return s.run(ctx, ws, url, llm.StyleFit)
}

func (s *Service) markPending(ws *Workspace, url string, style llm.Style) {
	if ValidateURL(url) != nil {
		return
	}
	ws.put(Outcome{URL: url, Style: style, State: StatePending, UpdatedAt: s.now()})
}

// run takes one URL from Pending through Generating to a terminal state.
// Input, template and configuration problems fail the URL before any network
// call is made.
func (s *Service) run(ctx context.Context, ws *Workspace, url string, style llm.Style) Outcome {
	start := s.now()
	log := s.log.With("url", url, "style", string(style), "workspace", ws.ID)

	fail := func(err error) Outcome {
		err = apperr.WithURL(err, url)
		o := Outcome{URL: url, Style: style, State: StateFailed, Err: err, UpdatedAt: s.now(), Duration: s.now().Sub(start)}
		if apperr.KindOf(err) != apperr.KindInput {
			ws.put(o)
		}
		metrics.GenerationsTotal.WithLabelValues(string(style), string(apperr.KindOf(err))).Inc()
		log.Warn("generation failed", "kind", string(apperr.KindOf(err)), "error", err)
		return o
	}

	if err := ValidateURL(url); err != nil {
		return fail(err)
	}
	p, err := s.render(ws, url, style)
	if err != nil {
		return fail(err)
	}
	if s.gen == nil {
		return fail(s.genErr)
	}

	if style == llm.StyleHook {
		s.fetchPreview(ctx, ws, url)
	}

	ws.put(Outcome{URL: url, Style: style, State: StateGenerating, UpdatedAt: s.now()})
	log.Debug("generation started")

	text, err := s.gen.Generate(ctx, llm.Request{Prompt: p, URL: url, Style: style})
	elapsed := s.now().Sub(start)
	metrics.GenerationDuration.WithLabelValues(string(style)).Observe(elapsed.Seconds())
	if err != nil {
		return fail(err)
	}

	o := Outcome{
		URL:       url,
		Style:     style,
		State:     StateSucceeded,
		Text:      strings.TrimSpace(text),
		UpdatedAt: s.now(),
		Duration:  elapsed,
	}
	ws.put(o)
	metrics.GenerationsTotal.WithLabelValues(string(style), "ok").Inc()
	log.Info("generation succeeded", "duration", elapsed.String(), "chars", len(o.Text))
	return o
}

func (s *Service) render(ws *Workspace, url string, style llm.Style) (string, error) {
	set := ws.Templates()
	if style == llm.StyleFit {
		return prompt.Render(set.Fit, prompt.Values{prompt.KeyURL: url})
	}
	return prompt.Render(set.Hook, prompt.Values{prompt.KeyURL: url, prompt.KeyExamples: s.examples})
}

// fetchPreview stores site metadata the first time a URL is seen. Failures
// only get logged.
func (s *Service) fetchPreview(ctx context.Context, ws *Workspace, url string) {
	if s.preview == nil || ws.hasPreview(url) {
		return
	}
	p, err := s.preview.Fetch(ctx, url)
	if err != nil {
		s.log.Debug("site preview unavailable", "url", url, "error", err)
		return
	}
	if !p.Empty() {
		ws.setPreview(url, p)
	}
}
