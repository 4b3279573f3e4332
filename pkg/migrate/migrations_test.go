package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestItemsMigration(t *testing.T) {
	assertContains(t, readMigration(t, "create_items"), []string{
		"CREATE TABLE IF NOT EXISTS items",
		"CHECK (quantity >= 0)",
		"lower(btrim(name))",
		"DROP TABLE IF EXISTS items",
	})
}

func TestReservationsMigration(t *testing.T) {
	assertContains(t, readMigration(t, "create_reservations"), []string{
		"CREATE TABLE IF NOT EXISTS reservations",
		"availability_conflicts jsonb",
		"CHECK (status IN ('open', 'closed', 'returned', 'canceled'))",
		"CHECK (availability_status IN ('OK', 'CONFLICT', 'UNKNOWN'))",
		"FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE",
		"WHERE status = 'open'",
		"DROP TABLE IF EXISTS reservation_lines",
	})
}

func TestClosedDatesMigration(t *testing.T) {
	assertContains(t, readMigration(t, "create_closed_dates"), []string{
		"date_key text PRIMARY KEY",
		"DROP TABLE IF EXISTS closed_dates",
	})
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20240101000000_missing_down.sql"), []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected missing down section to fail")
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"bad-name.sql":                  "-- +goose Up\n-- +goose Down\n",
		"20240101000000_reversed.sql":   "-- +goose Down\n-- +goose Up\n",
		"20240101000001_missing_up.sql": "-- +goose Down\n",
		"20240101000002_fine.sql":       "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	err := ValidateDir(dir)
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", got, err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now = func() time.Time { return time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC) }
	defer func() { now = time.Now }()

	path, err := CreateSQLMigration(dir, "Add Item Notes!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20240701083000_add_item_notes.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if _, err := CreateSQLMigration(dir, "Add Item Notes!"); err == nil {
		t.Fatal("expected duplicate migration to fail")
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}
