package postgres

import (
	"context"
	"embed"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one embedded schema file and whether it has been applied.
type Migration struct {
	Version   string
	AppliedAt *time.Time
}

// ensureMigrationsTable creates the bookkeeping table on first use.
func (p *Pool) ensureMigrationsTable(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

// appliedMigrations returns applied versions with their timestamps.
func (p *Pool) appliedMigrations(ctx context.Context) (map[string]time.Time, error) {
	if err := p.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var v string
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// embeddedMigrations lists the embedded SQL files in apply order.
func embeddedMigrations() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Migrate applies all pending migrations, each in its own transaction.
func (p *Pool) Migrate(ctx context.Context) error {
	applied, err := p.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	files, err := embeddedMigrations()
	if err != nil {
		return err
	}

	for _, file := range files {
		if _, ok := applied[file]; ok {
			continue
		}
		if err := p.applyMigration(ctx, file); err != nil {
			return err
		}
		log.Printf("Applied migration: %s", file)
	}

	return nil
}

func (p *Pool) applyMigration(ctx context.Context, file string) error {
	content, err := migrationsFS.ReadFile("migrations/" + file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", file, err)
	}

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		tx.Rollback()
		return fmt.Errorf("execute migration %s: %w", file, err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", file); err != nil {
		tx.Rollback()
		return fmt.Errorf("record migration %s: %w", file, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file, err)
	}
	return nil
}

// Migrations reports every embedded migration with its applied time, nil
// for pending ones.
func (p *Pool) Migrations(ctx context.Context) ([]Migration, error) {
	applied, err := p.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	files, err := embeddedMigrations()
	if err != nil {
		return nil, err
	}

	result := make([]Migration, 0, len(files))
	for _, file := range files {
		m := Migration{Version: file}
		if at, ok := applied[file]; ok {
			m.AppliedAt = &at
		}
		result = append(result, m)
	}
	return result, nil
}
