package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/config"
)

const defaultTimeout = 90 * time.Second

// Style names which template produced a request's prompt.
type Style string

const (
	StyleHook Style = "hook"
	StyleFit  Style = "fit"
)

// Request is one generation call.
type Request struct {
	Prompt string
	URL    string
	Style  Style
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return apperr.Generation("generate", "prompt is empty", nil)
	}
	return nil
}

// Generator streams a search-augmented answer for a prompt and returns the
// full text. Implementations make exactly one outbound request per call and
// never retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New creates a Generator based on the config. A missing API key returns a
// KindAuth "not configured" error so callers can keep running without one.
func New(cfg *config.Config) (Generator, error) {
	if cfg.LLM.Provider == "mock" {
		return MockGenerator{}, nil
	}
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return nil, apperr.Auth("configure generator",
			fmt.Sprintf("%s API key is not configured (set HOOKLINE_LLM_API_KEY)", providerName(cfg.LLM.Provider)), nil)
	}
	switch cfg.LLM.Provider {
	case "", "openai", "openai-compatible":
		return newOpenAIGenerator(cfg), nil
	case "anthropic":
		return newAnthropicGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.LLM.Provider)
	}
}

func providerName(p string) string {
	if p == "" {
		return "openai"
	}
	return p
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

// classify maps a transport or provider failure onto the error taxonomy.
// status is the HTTP status when one is known, otherwise 0.
func classify(ctx context.Context, op string, status int, err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Generation(op, "timed out waiting for the AI service", err)
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Auth(op, "the AI service rejected the API key", err)
	}
	return apperr.Generation(op, "AI service request failed", err)
}
