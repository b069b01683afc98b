package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/001_initial.up.sql
var initialMigrationSQL string

//go:embed migrations/002_latest_entry_index.up.sql
var latestEntryIndexSQL string

var requiredTables = []string{
	"users",
	"refresh_tokens",
	"forms",
	"entries",
	"entry_meta",
	"entry_notes",
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	exists, err := db.hasAllRequiredTables(ctx)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}

	if !exists {
		slog.Info("database schema missing tables; applying initial migration")
		if _, err := db.Pool.Exec(ctx, initialMigrationSQL); err != nil {
			return fmt.Errorf("apply initial migration: %w", err)
		}

		exists, err = db.hasAllRequiredTables(ctx)
		if err != nil {
			return fmt.Errorf("re-check tables after migration: %w", err)
		}

		if !exists {
			return fmt.Errorf("schema initialization incomplete: required tables are still missing")
		}
	}

	// 002: latest entry lookup index.
	if err := db.applyLatestEntryIndex(ctx); err != nil {
		return fmt.Errorf("apply latest entry index migration: %w", err)
	}

	slog.Info("database schema ensured")
	return nil
}

// applyLatestEntryIndex runs migration 002. The SQL uses IF NOT EXISTS so it
// is safe to re-run.
func (db *DB) applyLatestEntryIndex(ctx context.Context) error {
	var hasIndex bool
	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			  AND indexname = 'entries_latest_idx'
		)
	`).Scan(&hasIndex)
	if err != nil {
		return fmt.Errorf("check entries_latest_idx: %w", err)
	}

	if !hasIndex {
		slog.Info("applying latest entry index migration (002)")
		if _, err := db.Pool.Exec(ctx, latestEntryIndexSQL); err != nil {
			return fmt.Errorf("exec latest entry index SQL: %w", err)
		}
	}

	return nil
}

func (db *DB) hasAllRequiredTables(ctx context.Context) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name = ANY($1)
	`, requiredTables).Scan(&count)
	if err != nil {
		return false, err
	}

	return count == len(requiredTables), nil
}
