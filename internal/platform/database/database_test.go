package database

import (
	"testing"

	"dingbot/internal/platform/config"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(config.DatabaseConfig{URL: "file::memory:"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	applied, err := Migrate(db)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_deliveries.sql" {
		t.Errorf("Migrate() applied = %v, want [001_deliveries.sql]", applied)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM deliveries`).Scan(&count); err != nil {
		t.Fatalf("deliveries table missing: %v", err)
	}

	applied, err = Migrate(db)
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Migrate() applied = %v, want none", applied)
	}
}

func TestOpenFile(t *testing.T) {
	path := t.TempDir() + "/dingbot.db"
	db, err := Open(config.DatabaseConfig{URL: "file:" + path, MaxConnections: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 2 {
		t.Errorf("MaxOpenConnections = %v, want 2", got)
	}
}
