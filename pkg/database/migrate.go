package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationTable = "schema_migrations"

// Migrate applies embedded .sql files in name order, each at most once. Only
// the section after "-- +migrate Up" runs. It returns the applied file names.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrationFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := `
		CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}

	var applied []string
	for _, file := range files {
		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}

		ok, err := applyMigration(ctx, pool, file, ExtractUpMigration(string(content)))
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, file)
		}
	}

	return applied, nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, name, upSQL string) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer tx.Rollback(ctx)

	// Serialises concurrent migrators on the same database
	if _, err := tx.Exec(ctx, "LOCK TABLE "+migrationTable+" IN EXCLUSIVE MODE"); err != nil {
		return false, fmt.Errorf("lock migration table: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM "+migrationTable+" WHERE name = $1)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	if exists || strings.TrimSpace(upSQL) == "" {
		return false, nil
	}

	if _, err := tx.Exec(ctx, upSQL, pgx.QueryExecModeSimpleProtocol); err != nil {
		return false, fmt.Errorf("exec migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO "+migrationTable+" (name) VALUES ($1)", name); err != nil {
		return false, fmt.Errorf("record migration %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", name, err)
	}
	return true, nil
}

// ExtractUpMigration returns the SQL in the -- +migrate Up section
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}
