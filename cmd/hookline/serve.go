package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/joestump/hookline/internal/auth"
	"github.com/joestump/hookline/internal/config"
	"github.com/joestump/hookline/internal/db"
	"github.com/joestump/hookline/internal/handler"
	"github.com/joestump/hookline/internal/hooks"
	"github.com/joestump/hookline/internal/llm"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/sitemeta"
	"github.com/joestump/hookline/internal/templates"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = 10 * time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sessionManager := auth.NewSessionManager(database, cfg.DB.Driver, cfg.SessionLifetime, cfg.InsecureCookies)
			store, storeLabel := templateStore(cfg, database)
			svc := newService(cfg, log)
			registry := hooks.NewRegistry()
			workspaces := auth.NewWorkspaces(sessionManager, registry, store, log)
			go runWorkspaceSweeper(ctx, registry, cfg.SessionLifetime, log)

			var oidcProvider *auth.OIDCProvider
			if cfg.OIDCEnabled() {
				if oidcProvider, err = auth.NewOIDCProvider(ctx, cfg); err != nil {
					return err
				}
			}
			var passwords auth.Provider
			if len(cfg.Users) > 0 {
				passwords = auth.NewStaticProvider(cfg.Users)
			}

			authHandlers := auth.NewHandlers(auth.HandlersDeps{
				Passwords:       passwords,
				OIDC:            oidcProvider,
				Workspaces:      workspaces,
				Render:          handler.RenderLogin,
				InsecureCookies: cfg.InsecureCookies,
				Logger:          log,
			})

			router := handler.NewRouter(handler.Deps{
				SessionManager: sessionManager,
				AuthHandlers:   authHandlers,
				AuthMiddleware: auth.NewMiddleware(workspaces),
				Service:        svc,
				TemplateStore:  store,
				StoreLabel:     storeLabel,
				OIDCEnabled:    oidcProvider != nil,
				Logger:         log,
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", "addr", cfg.HTTP.Addr, "llm_provider", cfg.LLM.Provider, "templates", storeLabel)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// runWorkspaceSweeper drops workspaces whose session can no longer be alive
// until ctx is cancelled.
func runWorkspaceSweeper(ctx context.Context, reg *hooks.Registry, lifetime time.Duration, log *logger.Logger) {
	if lifetime <= 0 {
		return
	}
	every := sweepInterval
	if lifetime < every {
		every = lifetime
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := reg.Sweep(lifetime); n > 0 {
				log.Info("dropped idle workspaces", "count", n, "open", reg.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}

// templateStore returns the configured template store and a label for the
// settings page.
func templateStore(cfg *config.Config, database *sqlx.DB) (templates.Store, string) {
	if cfg.Templates.Store == "db" {
		return templates.NewSQLStore(database), "database"
	}
	return templates.NewFileStore(cfg.Templates.Path), cfg.Templates.Path
}

// newService builds the orchestration service. A generator that cannot be
// configured is logged and surfaced on every run instead of stopping startup.
func newService(cfg *config.Config, log *logger.Logger) *hooks.Service {
	gen, genErr := llm.New(cfg)
	if genErr != nil {
		log.Warn("AI service unavailable", "provider", cfg.LLM.Provider, "error", genErr)
	}

	var previewer hooks.Previewer
	if cfg.Preview.Enabled {
		previewer = sitemeta.NewFetcher(cfg.Preview.Timeout)
	}

	return hooks.NewService(hooks.Deps{
		Generator:    gen,
		GeneratorErr: genErr,
		Examples:     templates.LoadExamples(cfg.Templates.ExamplesPath, log),
		Previewer:    previewer,
		Logger:       log,
	})
}
