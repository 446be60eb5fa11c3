package ops

import (
	"strings"
	"testing"

	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/session"
)

func TestUpdate_TogglesHeaderLines(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")
	if _, err := Ingest(mgr, IngestInput{
		Session: created.ID,
		Role:    "ai",
		Text:    "[time: 21:30] [location: Pier 4] [weather: Rain]",
	}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	output, err := Update(mgr, UpdateInput{
		Session: created.ID,
		Patch:   SettingsPatch{ShowWeather: boolPtr(false)},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if output.Settings.ShowWeather {
		t.Error("ShowWeather = true, want false")
	}

	latest, err := Latest(mgr, LatestInput{Session: created.ID})
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if strings.Contains(latest.Header, "Weather:") {
		t.Errorf("Header = %q, want weather line hidden", latest.Header)
	}
	if !strings.Contains(latest.Header, "Location: Pier 4") {
		t.Errorf("Header = %q, want other lines kept", latest.Header)
	}

	// The stored header is repainted too.
	fetched, err := Fetch(database, FetchInput{Session: created.ID})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if strings.Contains(fetched.Messages[0].Header, "Weather:") {
		t.Errorf("stored header = %q, want weather line hidden", fetched.Messages[0].Header)
	}
}

func TestUpdate_DisableThenReenable(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")
	if _, err := Ingest(mgr, IngestInput{Session: created.ID, Role: "ai", Text: "[location: Pier 4]"}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if _, err := Update(mgr, UpdateInput{Session: created.ID, Patch: SettingsPatch{Enabled: boolPtr(false)}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	_, err = Edit(mgr, EditInput{Session: created.ID, Edits: session.FieldEdits{Location: stringPtr("Anywhere")}})
	if !errors.Is(err, errors.ErrTrackerDisabled) {
		t.Errorf("Edit after disabling should return ErrTrackerDisabled, got: %v", err)
	}

	if _, err := Update(mgr, UpdateInput{Session: created.ID, Patch: SettingsPatch{Enabled: boolPtr(true)}}); err != nil {
		t.Fatalf("re-enabling Update failed: %v", err)
	}
	if _, err := Edit(mgr, EditInput{Session: created.ID, Edits: session.FieldEdits{Location: stringPtr("Anywhere")}}); err != nil {
		t.Errorf("Edit after re-enabling failed: %v", err)
	}
}

func TestUpdate_PersistsAcrossRuntimes(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")
	if _, err := Update(mgr, UpdateInput{Session: created.ID, Patch: SettingsPatch{ScanDepth: intPtr(3)}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	mgr.DropRuntime(created.ID)

	fetched, err := Fetch(database, FetchInput{Session: created.ID})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if fetched.Settings.ScanDepth != 3 {
		t.Errorf("ScanDepth = %d, want persisted 3", fetched.Settings.ScanDepth)
	}
}

func TestUpdate_Validation(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")

	cases := []struct {
		name  string
		patch SettingsPatch
	}{
		{"empty patch", SettingsPatch{}},
		{"zero scan depth", SettingsPatch{ScanDepth: intPtr(0)}},
		{"negative prompt depth", SettingsPatch{PromptDepth: intPtr(-1)}},
		{"negative heart seed", SettingsPatch{DefaultHeartPoints: intPtr(-5)}},
	}
	for _, tc := range cases {
		_, err := Update(mgr, UpdateInput{Session: created.ID, Patch: tc.patch})
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("%s: want ErrInvalidRequest, got: %v", tc.name, err)
		}
	}
}

func TestSetState_OverridesLiveState(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")
	if _, err := Ingest(mgr, IngestInput{Session: created.ID, Role: "ai", Text: "[location: Pier 4] [heart: 100]"}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	output, err := SetState(mgr, SetStateInput{
		Session: created.ID,
		Edits: session.FieldEdits{
			Location:    stringPtr("Rooftop"),
			HeartPoints: intPtr(-20),
		},
	})
	if err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	if output.Snapshot.Location != "Rooftop" {
		t.Errorf("Location = %q, want %q", output.Snapshot.Location, "Rooftop")
	}
	if output.Snapshot.HeartPoints != 0 {
		t.Errorf("HeartPoints = %d, want clamped to 0", output.Snapshot.HeartPoints)
	}
	if !strings.Contains(output.Header, "Location: Rooftop") {
		t.Errorf("Header = %q, want corrected location", output.Header)
	}

	// The correction lands on the newest tracked message.
	fetched, err := Fetch(database, FetchInput{Session: created.ID})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	ai := fetched.Messages[0]
	if ai.Snapshot == nil || ai.Snapshot.Location != "Rooftop" {
		t.Errorf("stored snapshot = %+v, want corrected location", ai.Snapshot)
	}
}

func TestSetState_WorksWithoutMessages(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")

	output, err := SetState(mgr, SetStateInput{
		Session: created.ID,
		Edits:   session.FieldEdits{Weather: stringPtr("Thunderstorm")},
	})
	if err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if output.Snapshot.Weather != "Thunderstorm" {
		t.Errorf("Weather = %q, want %q", output.Snapshot.Weather, "Thunderstorm")
	}
}

func TestSetState_Validation(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")

	if _, err := SetState(mgr, SetStateInput{Session: created.ID}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("SetState with no edits should return ErrInvalidRequest, got: %v", err)
	}

	if _, err := Update(mgr, UpdateInput{Session: created.ID, Patch: SettingsPatch{Enabled: boolPtr(false)}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	_, err = SetState(mgr, SetStateInput{
		Session: created.ID,
		Edits:   session.FieldEdits{Weather: stringPtr("Hail")},
	})
	if !errors.Is(err, errors.ErrTrackerDisabled) {
		t.Errorf("SetState while disabled should return ErrTrackerDisabled, got: %v", err)
	}
}

func TestSettings_ReadsCurrentValues(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")
	if _, err := Update(mgr, UpdateInput{
		Session: created.ID,
		Patch:   SettingsPatch{ScanDepth: intPtr(7)},
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	output, err := Settings(mgr, SettingsInput{Session: "harbor run"})
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if output.Settings.ScanDepth != 7 {
		t.Errorf("ScanDepth = %d, want 7", output.Settings.ScanDepth)
	}
	if !output.Settings.Enabled {
		t.Error("Enabled = false, want true")
	}
}

func TestSettings_WorksWhileDisabled(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	created := startSession(t, database, "harbor run")
	if _, err := Update(mgr, UpdateInput{
		Session: created.ID,
		Patch:   SettingsPatch{Enabled: boolPtr(false)},
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	output, err := Settings(mgr, SettingsInput{Session: created.ID})
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if output.Settings.Enabled {
		t.Error("Enabled = true, want false")
	}
}

func TestSettings_UnknownSession(t *testing.T) {
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer database.Close()
	mgr := session.NewManager(database, nil, nil)
	defer mgr.Close()

	if _, err := Settings(mgr, SettingsInput{Session: "missing"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Settings(missing) error = %v, want %v", err, errors.ErrNotFound)
	}
}
