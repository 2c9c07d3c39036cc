package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantKind apperr.Kind
		wantErr  bool
	}{
		{name: "openai", provider: "openai", apiKey: "k"},
		{name: "compatible", provider: "openai-compatible", apiKey: "k"},
		{name: "anthropic", provider: "anthropic", apiKey: "k"},
		{name: "mock needs no key", provider: "mock"},
		{name: "missing key", provider: "openai", wantKind: apperr.KindAuth, wantErr: true},
		{name: "blank key", provider: "anthropic", apiKey: "  ", wantKind: apperr.KindAuth, wantErr: true},
		{name: "unknown provider", provider: "cohere", apiKey: "k", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.LLM.Provider = tt.provider
			cfg.LLM.APIKey = tt.apiKey
			g, err := New(cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.wantKind != "" && apperr.KindOf(err) != tt.wantKind {
					t.Errorf("kind = %q, want %q", apperr.KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil || g == nil {
				t.Fatalf("New: %v", err)
			}
		})
	}
}

func TestMockGenerator(t *testing.T) {
	g := MockGenerator{}
	got, err := g.Generate(context.Background(), Request{Prompt: "p", URL: "https://acme.test", Style: StyleHook})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(got, "https://acme.test") {
		t.Errorf("got %q", got)
	}
	if _, err := g.Generate(context.Background(), Request{Prompt: " "}); apperr.KindOf(err) != apperr.KindGeneration {
		t.Errorf("empty prompt err = %v", err)
	}
}
