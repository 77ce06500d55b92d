package database

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"example.com/expense-tracker/backend/internal/config"
)

// TestMigrationURL проверяет подстановку схемы драйвера.
func TestMigrationURL(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "tracker",
		Password: "p@ss",
		Name:     "expense_tracker",
		SSLMode:  "disable",
	}

	got := migrationURL(cfg)
	if !strings.HasPrefix(got, "pgx5://tracker:p%40ss@db:5432/expense_tracker") {
		t.Fatalf("unexpected url %s", got)
	}
	if !strings.HasSuffix(got, "?sslmode=disable") {
		t.Fatalf("expected sslmode query, got %s", got)
	}
}

// TestMigrationsArePaired проверяет, что у каждой up-миграции есть down.
func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	if len(ups) == 0 {
		t.Fatal("expected at least one migration")
	}
	for name := range ups {
		if !downs[name] {
			t.Fatalf("migration %s has no down file", name)
		}
	}
}

// TestMigrationsUseUnboundedNumeric проверяет, что денежные колонки не ограничены точностью.
func TestMigrationsUseUnboundedNumeric(t *testing.T) {
	bounded := regexp.MustCompile(`(?i)NUMERIC\s*\(`)

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if loc := bounded.FindIndex(body); loc != nil {
			t.Fatalf("%s declares bounded NUMERIC at offset %d", entry.Name(), loc[0])
		}
	}
}
