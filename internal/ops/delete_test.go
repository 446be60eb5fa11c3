package ops

import (
	"testing"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/session"
)

func TestDelete_SoftDeletesSession(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")

	output, err := Delete(mgr, DeleteInput{Session: "harbor run"})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !output.Deleted || output.ID != created.ID {
		t.Errorf("output = %+v, want deleted with matching id", output)
	}

	if _, err := ResolveSession(database, created.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("resolving a deleted session should return ErrNotFound, got: %v", err)
	}

	// Soft delete keeps the row for Purge.
	row, err := db.GetSessionByID(database, created.ID, true)
	if err != nil {
		t.Fatalf("GetSessionByID failed: %v", err)
	}
	if row.DeletedAt == nil {
		t.Error("DeletedAt = nil, want a deletion timestamp")
	}
}

func TestDelete_UnknownSession(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	_, err = Delete(mgr, DeleteInput{Session: "nobody home"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Delete of an unknown session should return ErrNotFound, got: %v", err)
	}
}

func TestRemoveMessage_RenumbersKeepsLiveState(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")
	if _, err := Ingest(mgr, IngestInput{Session: created.ID, Role: "ai", Text: "[location: Cafe Luna]"}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	middle, err := Ingest(mgr, IngestInput{Session: created.ID, Role: "user", Text: "Wait here."})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if _, err := Ingest(mgr, IngestInput{Session: created.ID, Role: "ai", Text: "[location: Pier 4]"}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	output, err := RemoveMessage(mgr, RemoveMessageInput{Session: created.ID, Index: 1})
	if err != nil {
		t.Fatalf("RemoveMessage failed: %v", err)
	}
	if !output.Removed || output.MessageID != middle.MessageID {
		t.Errorf("output = %+v, want removal of %q", output, middle.MessageID)
	}

	fetched, err := Fetch(database, FetchInput{Session: created.ID})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(fetched.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(fetched.Messages))
	}
	for i, m := range fetched.Messages {
		if m.Index != i {
			t.Errorf("Messages[%d].Index = %d, want %d", i, m.Index, i)
		}
	}

	latest, err := Latest(mgr, LatestInput{Session: created.ID})
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Snapshot.Location != "Pier 4" {
		t.Errorf("live location = %q, want %q kept after removal", latest.Snapshot.Location, "Pier 4")
	}
}

func TestRemoveMessage_UnknownIndex(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")

	_, err = RemoveMessage(mgr, RemoveMessageInput{Session: created.ID, Index: 5})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("RemoveMessage at a missing index should return ErrNotFound, got: %v", err)
	}
}
