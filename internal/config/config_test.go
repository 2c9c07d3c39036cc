package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func baseViper() *viper.Viper {
	v := viper.New()
	v.Set("auth.users", map[string]any{"alice": "$2a$10$hash"})
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg, err := fromViper(baseViper())
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.DB.Driver != "sqlite3" || cfg.DB.DSN != "hookline.db" {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Timeout != 90*time.Second {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want fallback from OPENAI_API_KEY", cfg.LLM.APIKey)
	}
	if cfg.SessionLifetime != 720*time.Hour {
		t.Errorf("SessionLifetime = %v", cfg.SessionLifetime)
	}
	if cfg.Templates.Store != "file" || cfg.Templates.Path != "templates.yaml" {
		t.Errorf("Templates = %+v", cfg.Templates)
	}
	if cfg.Users["alice"] != "$2a$10$hash" {
		t.Errorf("Users = %v", cfg.Users)
	}
}

func TestFromViper_ExplicitKeyWins(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	v := baseViper()
	v.Set("llm.provider", "anthropic")
	v.Set("llm.api_key", "explicit")
	cfg, err := fromViper(v)
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}
	if cfg.LLM.APIKey != "explicit" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}
}

func TestFromViper_MissingKeyIsNotFatal(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := fromViper(baseViper())
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.LLM.APIKey)
	}
}

func TestFromViper_UsersFromEnv(t *testing.T) {
	t.Setenv("HOOKLINE_AUTH_USERS", "bob:$2a$10$x, carol:$2a$10$y")
	cfg, err := fromViper(viper.New())
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}
	if len(cfg.Users) != 2 || cfg.Users["carol"] != "$2a$10$y" {
		t.Errorf("Users = %v", cfg.Users)
	}
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		noUsers bool
		wantErr string
	}{
		{name: "bad driver", set: map[string]any{"db.driver": "oracle"}, wantErr: "HOOKLINE_DB_DRIVER"},
		{name: "bad provider", set: map[string]any{"llm.provider": "cohere"}, wantErr: "HOOKLINE_LLM_PROVIDER"},
		{name: "bad search size", set: map[string]any{"llm.search_context_size": "huge"}, wantErr: "SEARCH_CONTEXT_SIZE"},
		{name: "bad timeout", set: map[string]any{"llm.timeout": "soon"}, wantErr: "HOOKLINE_LLM_TIMEOUT"},
		{name: "bad store", set: map[string]any{"templates.store": "s3"}, wantErr: "HOOKLINE_TEMPLATES_STORE"},
		{name: "no login method", noUsers: true, wantErr: "no way to log in"},
		{name: "oidc without client", set: map[string]any{"oidc.issuer": "https://idp.example.com"}, wantErr: "HOOKLINE_OIDC_CLIENT_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := baseViper()
			if tt.noUsers {
				v = viper.New()
			}
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := fromViper(v)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
