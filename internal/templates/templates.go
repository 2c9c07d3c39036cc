// Package templates persists the two editable prompt templates, "hook" and
// "fit", and supplies the built-in defaults used when the store is unusable.
package templates

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/metrics"
	"github.com/joestump/hookline/internal/prompt"
)

// Template names, also used as YAML keys and database row names.
const (
	NameHook = "hook"
	NameFit  = "fit"
)

//go:embed hook.tmpl
var defaultHook string

//go:embed fit.tmpl
var defaultFit string

// DefaultExamples is the style-example block substituted for {examples}.
//
//go:embed examples.txt
var DefaultExamples string

// Set holds the live hook and fit templates.
type Set struct {
	Hook string `yaml:"hook" json:"hook"`
	Fit  string `yaml:"fit" json:"fit"`
}

// Defaults returns the built-in templates.
func Defaults() Set {
	return Set{Hook: defaultHook, Fit: defaultFit}
}

// Validate checks that the hook template uses only {url} and {examples} and
// the fit template only {url}.
func (s Set) Validate() error {
	if strings.TrimSpace(s.Hook) == "" {
		return apperr.TemplateFormat("validate templates", "hook template is empty", nil)
	}
	if strings.TrimSpace(s.Fit) == "" {
		return apperr.TemplateFormat("validate templates", "fit template is empty", nil)
	}
	if err := prompt.Validate(s.Hook, prompt.KeyURL, prompt.KeyExamples); err != nil {
		return fmt.Errorf("hook template: %w", err)
	}
	if err := prompt.Validate(s.Fit, prompt.KeyURL); err != nil {
		return fmt.Errorf("fit template: %w", err)
	}
	return nil
}

// Store loads and saves a template Set.
type Store interface {
	Load(ctx context.Context) (Set, error)
	Save(ctx context.Context, s Set) error
}

// LoadOrDefault returns the stored templates, or exactly Defaults() when the
// store cannot be read or holds an incomplete document. Failures are logged,
// never returned.
func LoadOrDefault(ctx context.Context, st Store, log *logger.Logger) Set {
	if st == nil {
		return Defaults()
	}
	s, err := st.Load(ctx)
	if err == nil && (strings.TrimSpace(s.Hook) == "" || strings.TrimSpace(s.Fit) == "") {
		err = apperr.Persistence("load templates", "stored document is missing the hook or fit template", nil)
	}
	if err != nil {
		metrics.TemplateLoadFallbacksTotal.Inc()
		log.Warn("template store unreadable, using built-in defaults", "error", err)
		return Defaults()
	}
	return s
}

// SaveValidated validates s and writes it to st. Validation failures are
// TemplateFormat errors; write failures are Persistence errors.
func SaveValidated(ctx context.Context, st Store, s Set) error {
	if err := s.Validate(); err != nil {
		metrics.TemplateSavesTotal.WithLabelValues("invalid").Inc()
		return err
	}
	if err := st.Save(ctx, s); err != nil {
		metrics.TemplateSavesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.TemplateSavesTotal.WithLabelValues("ok").Inc()
	return nil
}

// LoadExamples reads the {examples} block from path, falling back to
// DefaultExamples when path is empty or unreadable.
func LoadExamples(path string, log *logger.Logger) string {
	if path == "" {
		return DefaultExamples
	}
	b, err := os.ReadFile(path)
	if err != nil || strings.TrimSpace(string(b)) == "" {
		log.Warn("examples file unreadable, using built-in examples", "path", path, "error", err)
		return DefaultExamples
	}
	return string(b)
}
