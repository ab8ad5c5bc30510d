// internal/database/migrate.go
//
// Embedded schema migrations.
//
// Context
// -------
// Files under migrations/ are named `NNNN_description.sql` and applied in
// lexical order.  Each applied file is recorded in `schema_migrations` so a
// second run is a no-op.  Statements are split on `;` at end of line because
// the driver runs without multiStatements.
//
// Notes
// -----
//   - Each file runs inside one transaction.  MySQL commits DDL implicitly,
//     so a failing file may leave earlier statements applied; files use
//     IF NOT EXISTS to make a rerun safe.
package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    VARCHAR(100) NOT NULL PRIMARY KEY,
    applied_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Migration is one embedded schema file.
type Migration struct {
	Version    string
	Statements []string
}

// Migrations returns the embedded files in apply order.
func Migrations() ([]Migration, error) {
	return loadMigrations(migrationFS, "migrations")
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		version := strings.TrimSuffix(name[strings.LastIndex(name, "/")+1:], ".sql")
		out = append(out, Migration{Version: version, Statements: splitStatements(string(raw))})
	}
	return out, nil
}

// splitStatements drops `--` comment lines and splits on a trailing `;`.
func splitStatements(src string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(cur.String()), ";")
			stmts = append(stmts, stmt)
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}

// Migrate applies every embedded migration not yet recorded.  It returns the
// versions it applied.
func Migrate(ctx context.Context, db *sqlx.DB) ([]string, error) {
	migs, err := Migrations()
	if err != nil {
		return nil, err
	}
	return apply(ctx, db, migs)
}

func apply(ctx context.Context, db *sqlx.DB, migs []Migration) ([]string, error) {
	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("schema_migrations: %w", err)
	}

	var done []string
	if err := db.SelectContext(ctx, &done, `SELECT version FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	seen := make(map[string]bool, len(done))
	for _, v := range done {
		seen[v] = true
	}

	var applied []string
	for _, m := range migs {
		if seen[m.Version] {
			continue
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return applied, err
		}
		for _, stmt := range m.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return applied, fmt.Errorf("migration %s: %w", m.Version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("record %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, err
		}
		zap.S().Infow("migration applied", "version", m.Version, "statements", len(m.Statements))
		applied = append(applied, m.Version)
	}
	return applied, nil
}
