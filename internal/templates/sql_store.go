package templates

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/hookline/internal/apperr"
)

type templateRow struct {
	Name      string    `db:"name"`
	Body      string    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SQLStore keeps templates as rows of the prompt_templates table.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *SQLStore) q(query string) string { return s.db.Rebind(query) }

// Load reads both rows. Missing rows leave the corresponding field empty.
func (s *SQLStore) Load(ctx context.Context) (Set, error) {
	var rows []templateRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT name, body, updated_at FROM prompt_templates WHERE name IN (?, ?)
	`), NameHook, NameFit)
	if err != nil {
		return Set{}, apperr.Persistence("load templates", "query prompt_templates", err)
	}
	var set Set
	for _, r := range rows {
		switch r.Name {
		case NameHook:
			set.Hook = r.Body
		case NameFit:
			set.Fit = r.Body
		}
	}
	return set, nil
}

// Save replaces both rows in one transaction.
func (s *SQLStore) Save(ctx context.Context, set Set) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Persistence("save templates", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, r := range []templateRow{{Name: NameHook, Body: set.Hook}, {Name: NameFit, Body: set.Fit}} {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM prompt_templates WHERE name = ?`), r.Name); err != nil {
			return apperr.Persistence("save templates", "delete "+r.Name, err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO prompt_templates (name, body, updated_at) VALUES (?, ?, ?)
		`), r.Name, r.Body, now); err != nil {
			return apperr.Persistence("save templates", "insert "+r.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Persistence("save templates", "commit", err)
	}
	return nil
}
