package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		Driver string
		DSN    string
	}
	Log struct {
		Mode string
	}
	OIDC struct {
		Issuer        string
		ClientID      string
		ClientSecret  string
		RedirectURL   string
		AllowedEmails []string
	}
	LLM struct {
		Provider          string
		Model             string
		APIKey            string
		BaseURL           string
		Timeout           time.Duration
		SearchContextSize string
	}
	Templates struct {
		Store        string // "file" or "db"
		Path         string
		ExamplesPath string
	}
	Preview struct {
		Enabled bool
		Timeout time.Duration
	}
	// Users maps username to bcrypt password hash.
	Users           map[string]string
	SessionLifetime time.Duration
	InsecureCookies bool
}

// OIDCEnabled reports whether single sign-on is configured.
func (c *Config) OIDCEnabled() bool { return c.OIDC.Issuer != "" }

// Load reads config from environment (HOOKLINE_ prefix) and optional hookline.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOOKLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("hookline")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.mode", "development")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "hookline.db")
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "90s")
	v.SetDefault("llm.search_context_size", "medium")
	v.SetDefault("templates.store", "file")
	v.SetDefault("templates.path", "templates.yaml")
	v.SetDefault("preview.timeout", "10s")
}

func fromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Log.Mode = v.GetString("log.mode")
	cfg.OIDC.Issuer = v.GetString("oidc.issuer")
	cfg.OIDC.ClientID = v.GetString("oidc.client_id")
	cfg.OIDC.ClientSecret = v.GetString("oidc.client_secret")
	cfg.OIDC.RedirectURL = v.GetString("oidc.redirect_url")
	cfg.OIDC.AllowedEmails = v.GetStringSlice("oidc.allowed_emails")
	cfg.LLM.Provider = v.GetString("llm.provider")
	cfg.LLM.Model = v.GetString("llm.model")
	cfg.LLM.BaseURL = v.GetString("llm.base_url")
	cfg.LLM.SearchContextSize = v.GetString("llm.search_context_size")
	cfg.LLM.APIKey = apiKey(v.GetString("llm.api_key"), cfg.LLM.Provider)
	cfg.Templates.Store = v.GetString("templates.store")
	cfg.Templates.Path = v.GetString("templates.path")
	cfg.Templates.ExamplesPath = v.GetString("templates.examples_path")
	cfg.Preview.Enabled = v.GetBool("preview.enabled")
	cfg.InsecureCookies = v.GetBool("insecure_cookies")
	cfg.Users = parseUsers(v)

	var err error
	if cfg.SessionLifetime, err = time.ParseDuration(v.GetString("session.lifetime")); err != nil {
		return nil, fmt.Errorf("invalid HOOKLINE_SESSION_LIFETIME: %w", err)
	}
	if cfg.LLM.Timeout, err = time.ParseDuration(v.GetString("llm.timeout")); err != nil {
		return nil, fmt.Errorf("invalid HOOKLINE_LLM_TIMEOUT: %w", err)
	}
	if cfg.Preview.Timeout, err = time.ParseDuration(v.GetString("preview.timeout")); err != nil {
		return nil, fmt.Errorf("invalid HOOKLINE_PREVIEW_TIMEOUT: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "sqlite3", "mysql", "postgres":
	default:
		return fmt.Errorf("HOOKLINE_DB_DRIVER must be sqlite3, mysql, or postgres (got %q)", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("HOOKLINE_DB_DSN is required")
	}
	switch c.LLM.Provider {
	case "openai", "openai-compatible", "anthropic", "mock":
	default:
		return fmt.Errorf("HOOKLINE_LLM_PROVIDER must be openai, openai-compatible, anthropic, or mock (got %q)", c.LLM.Provider)
	}
	switch c.LLM.SearchContextSize {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("HOOKLINE_LLM_SEARCH_CONTEXT_SIZE must be low, medium, or high (got %q)", c.LLM.SearchContextSize)
	}
	switch c.Templates.Store {
	case "file":
		if c.Templates.Path == "" {
			return fmt.Errorf("HOOKLINE_TEMPLATES_PATH is required when templates.store is file")
		}
	case "db":
	default:
		return fmt.Errorf("HOOKLINE_TEMPLATES_STORE must be file or db (got %q)", c.Templates.Store)
	}
	if len(c.Users) == 0 && !c.OIDCEnabled() {
		return fmt.Errorf("no way to log in: configure auth.users or HOOKLINE_OIDC_ISSUER")
	}
	if c.OIDCEnabled() {
		if c.OIDC.ClientID == "" {
			return fmt.Errorf("HOOKLINE_OIDC_CLIENT_ID is required when OIDC is enabled")
		}
		if c.OIDC.ClientSecret == "" {
			return fmt.Errorf("HOOKLINE_OIDC_CLIENT_SECRET is required when OIDC is enabled")
		}
		if c.OIDC.RedirectURL == "" {
			return fmt.Errorf("HOOKLINE_OIDC_REDIRECT_URL is required when OIDC is enabled")
		}
	}
	return nil
}

// apiKey prefers the explicit setting and falls back to the provider's
// conventional environment variable.
func apiKey(explicit, provider string) string {
	if explicit != "" {
		return explicit
	}
	switch provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "mock":
		return ""
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// parseUsers reads auth.users from the config file (a username: hash map) or
// from HOOKLINE_AUTH_USERS as comma-separated username:hash pairs.
func parseUsers(v *viper.Viper) map[string]string {
	users := map[string]string{}
	for name, hash := range v.GetStringMapString("auth.users") {
		if name != "" && hash != "" {
			users[name] = hash
		}
	}
	if raw := os.Getenv("HOOKLINE_AUTH_USERS"); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			name, hash, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if ok && name != "" && hash != "" {
				users[name] = hash
			}
		}
	}
	return users
}
