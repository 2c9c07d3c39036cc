package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joestump/hookline/internal/apperr"
	"github.com/joestump/hookline/internal/config"
	"github.com/joestump/hookline/internal/db"
	"github.com/joestump/hookline/internal/hooks"
	"github.com/joestump/hookline/internal/logger"
	"github.com/joestump/hookline/internal/templates"
)

func newGenerateCmd() *cobra.Command {
	var (
		urls []string
		fit  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate hooks for URLs from the terminal",
		Long: "Runs the hook generator with the stored templates and prints one result per URL.\n" +
			"URLs come from --url or, when none are given, one per line on stdin.",
		Args: cobra.NoArgs,
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

			if len(urls) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read urls from stdin: %w", err)
				}
				urls = hooks.ParseURLs(string(raw))
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given")
			}

			store := templates.Store(templates.NewFileStore(cfg.Templates.Path))
			if cfg.Templates.Store == "db" {
				database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
				if err != nil {
					return err
				}
				defer func() { _ = database.Close() }()
				if err := db.Migrate(database, cfg.DB.Driver); err != nil {
					return err
				}
				store, _ = templateStore(cfg, database)
			}

			ctx := cmd.Context()
			svc := newService(cfg, log)
			ws := hooks.NewRegistry().Open("cli", templates.LoadOrDefault(ctx, store, log))

			out := cmd.OutOrStdout()
			failed := 0
			for _, o := range svc.RunBatch(ctx, ws, urls) {
				if !printOutcome(out, o) {
					failed++
				}
				if fit && o.State == hooks.StateSucceeded {
					if !printOutcome(out, svc.AnalyzeFit(ctx, ws, o.URL)) {
						failed++
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d generation(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&urls, "url", nil, "website URL to generate a hook for (repeatable)")
	cmd.Flags().BoolVar(&fit, "fit", false, "also run the fit analysis for each URL that produced a hook")
	return cmd
}

// printOutcome writes one result block and reports whether it succeeded.
func printOutcome(w io.Writer, o hooks.Outcome) bool {
	fmt.Fprintf(w, "== %s [%s]\n", o.URL, o.Style)
	if o.State != hooks.StateSucceeded {
		fmt.Fprintf(w, "error: %s\n\n", apperr.UserMessage(o.Err))
		return false
	}
	fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(o.Text))
	return true
}
