package ops

import (
	"database/sql"
	"testing"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
)

func stringPtr(s string) *string { return &s }
func intPtr(n int) *int          { return &n }
func boolPtr(b bool) *bool       { return &b }

// startSession creates a session or fails the test.
func startSession(t *testing.T, database *sql.DB, name string) *StartOutput {
	t.Helper()
	out, err := Start(database, StartInput{Name: name})
	if err != nil {
		t.Fatalf("Start(%q) failed: %v", name, err)
	}
	return out
}

func TestResolveSession_ByID(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	created := startSession(t, database, "harbor run")

	row, err := ResolveSession(database, created.ID)
	if err != nil {
		t.Fatalf("ResolveSession failed: %v", err)
	}
	if row.ID != created.ID {
		t.Errorf("ID = %q, want %q", row.ID, created.ID)
	}
}

func TestResolveSession_ByName_CaseInsensitive(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	created := startSession(t, database, "Harbor Run")

	row, err := ResolveSession(database, "  HARBOR RUN  ")
	if err != nil {
		t.Fatalf("ResolveSession failed: %v", err)
	}
	if row.ID != created.ID {
		t.Errorf("ID = %q, want %q", row.ID, created.ID)
	}
	if row.NameRaw != "Harbor Run" {
		t.Errorf("NameRaw = %q, want original casing preserved", row.NameRaw)
	}
}

func TestResolveSession_Empty(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	if _, err := ResolveSession(database, "   "); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ResolveSession should return ErrInvalidRequest, got: %v", err)
	}
}

func TestResolveSession_Unknown(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()

	if _, err := ResolveSession(database, "no-such-session"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("ResolveSession should return ErrNotFound, got: %v", err)
	}
}

func TestParseRole(t *testing.T) {
	isUser, err := parseRole(" User ")
	if err != nil || !isUser {
		t.Errorf("parseRole(\" User \") = %v, %v; want true, nil", isUser, err)
	}

	isUser, err = parseRole("ai")
	if err != nil || isUser {
		t.Errorf("parseRole(\"ai\") = %v, %v; want false, nil", isUser, err)
	}

	if _, err := parseRole("narrator"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("parseRole(\"narrator\") should return ErrInvalidRequest, got: %v", err)
	}
}

func TestCleanOptionalString(t *testing.T) {
	if got := cleanOptionalString(nil); got != nil {
		t.Errorf("cleanOptionalString(nil) = %v, want nil", got)
	}
	if got := cleanOptionalString(stringPtr("   ")); got != nil {
		t.Errorf("cleanOptionalString(blank) = %v, want nil", got)
	}
	if got := cleanOptionalString(stringPtr("  Aria  ")); got == nil || *got != "Aria" {
		t.Errorf("cleanOptionalString = %v, want %q", got, "Aria")
	}
}
