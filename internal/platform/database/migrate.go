package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies embedded migrations in file name order, skipping those
// already recorded in schema_migrations. It returns the names applied.
func Migrate(db *sql.DB) ([]string, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var applied []string
	for _, name := range names {
		base := path.Base(name)

		var exists int
		err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, base).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", base, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrations.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", base, err)
		}

		log.Info().Str("migration", base).Msg("applying migration")
		if err := applyMigration(db, base, string(content)); err != nil {
			return applied, err
		}
		applied = append(applied, base)
	}
	return applied, nil
}

func applyMigration(db *sql.DB, name, content string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(content); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return tx.Commit()
}
