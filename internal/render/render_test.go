package render

import (
	"strings"
	"testing"

	"github.com/Kuma3D/PTTracker/internal/tag"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

func TestMeterEmoji(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{-50, "🤍"},
		{0, "🤍"},
		{4999, "🤍"},
		{5000, "💛"},
		{9999, "💛"},
		{10000, "🧡"},
		{19999, "🧡"},
		{20000, "❤️"},
		{29999, "❤️"},
		{30000, "💕"},
		{44999, "💕"},
		{45000, "💖"},
		{59999, "💖"},
		{60000, "💘"},
		{80000, "💘"},
	}

	for _, tt := range tests {
		if got := MeterEmoji(tt.points); got != tt.want {
			t.Errorf("MeterEmoji(%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}

func TestHeaderAllFields(t *testing.T) {
	snap := tracker.Snapshot{
		Time:        "2:05 PM",
		Location:    "Docks",
		HeartPoints: 75000,
		Characters: []tag.CharacterEntry{
			{Name: "Alice", State: "pleased"},
			{Name: "Bram"},
		},
	}

	got := Header(snap, tracker.DefaultSettings())
	want := strings.Join([]string{
		"Time: 2:05 PM",
		"Location: Docks",
		"Weather: Unknown",
		"💘 75000",
		"",
		"Characters: Alice, Bram",
		"Alice: pleased",
	}, "\n")

	if got != want {
		t.Errorf("Header() =\n%s\nwant:\n%s", got, want)
	}
}

func TestHeaderDisabledFieldsProduceNoLine(t *testing.T) {
	s := tracker.DefaultSettings()
	s.ShowWeather = false
	s.ShowCharacters = false

	snap := tracker.Snapshot{Time: "9:00 AM", Location: "Pier", Weather: "fog", HeartPoints: 10}
	got := Header(snap, s)

	if strings.Contains(got, "Weather") {
		t.Errorf("Header() = %q, weather line should be absent, not blank", got)
	}
	if strings.Contains(got, "Characters") {
		t.Errorf("Header() = %q, character block should be absent", got)
	}
	if lines := strings.Split(got, "\n"); len(lines) != 3 {
		t.Errorf("Header() has %d lines, want 3: %q", len(lines), got)
	}
}

func TestHeaderCharacterDetailJoins(t *testing.T) {
	snap := tracker.Snapshot{
		Characters: []tag.CharacterEntry{
			{Name: "Mira", Outfit: "travel cloak", State: "wary", Position: "by the door"},
		},
	}
	s := tracker.DefaultSettings()
	s.ShowTime, s.ShowLocation, s.ShowWeather, s.ShowHeart = false, false, false, false

	got := Header(snap, s)
	want := "Characters: Mira\nMira: travel cloak | wary | by the door"
	if got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
}

func TestHeaderCharacterTrackingDisabled(t *testing.T) {
	s := tracker.DefaultSettings()
	s.TrackCharacters = false

	snap := tracker.Snapshot{Characters: []tag.CharacterEntry{{Name: "Alice"}}}
	if got := Header(snap, s); strings.Contains(got, "Alice") {
		t.Errorf("Header() = %q, cast should be hidden when tracking is off", got)
	}
}

func TestHeaderEverythingDisabled(t *testing.T) {
	if got := Header(tracker.Snapshot{}, tracker.Settings{}); got != "" {
		t.Errorf("Header() = %q, want empty string", got)
	}
}
