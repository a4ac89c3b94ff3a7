package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmaddaus/issuetrack/internal/store"
)

// migratedDB creates a database at the current schema version.
func migratedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "issues.db")
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()
	return path
}

func TestDBVersionMemory(t *testing.T) {
	out, err := runCLI(t, "db", "version", ":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "schema version: 0") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestDBCheckMemory(t *testing.T) {
	out, err := runCLI(t, "db", "check", ":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "OK: database is compatible.") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestDBVersionMigrated(t *testing.T) {
	path := migratedDB(t)
	out, err := runCLI(t, "db", "version", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "schema version: 1") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestDBDowngradeThenCheckStillCompatible(t *testing.T) {
	path := migratedDB(t)
	out, err := runCLI(t, "db", "downgrade", path, "0")
	if err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	if !strings.Contains(out, "downgraded: 1 -> 0") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = runCLI(t, "db", "version", path)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "schema version: 0") {
		t.Errorf("unexpected output after downgrade: %s", out)
	}
}

func TestDBNoSubcommandPrintsHelp(t *testing.T) {
	out, err := runCLI(t, "db")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "downgrade") {
		t.Errorf("expected help listing subcommands, got: %s", out)
	}
}

func TestDBMissingDBPath(t *testing.T) {
	if _, err := runCLI(t, "db", "version"); err == nil {
		t.Fatal("expected error for missing db path")
	}
}

func TestDBUnknownSubcommand(t *testing.T) {
	if _, err := runCLI(t, "db", "bogus", ":memory:"); err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
}

func TestDBDowngradeMissingVersion(t *testing.T) {
	if _, err := runCLI(t, "db", "downgrade", ":memory:"); err == nil {
		t.Fatal("expected error for missing downgrade version")
	}
}

func TestDBDowngradeInvalidVersion(t *testing.T) {
	if _, err := runCLI(t, "db", "downgrade", ":memory:", "abc"); err == nil {
		t.Fatal("expected error for invalid version number")
	}
}

func TestDBDowngradeTargetNotLess(t *testing.T) {
	// :memory: has version 0, so downgrading to 0 should fail (target >= current)
	if _, err := runCLI(t, "db", "downgrade", ":memory:", "0"); err == nil {
		t.Fatal("expected error when target >= current")
	}
}
