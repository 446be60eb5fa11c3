package tracker

import (
	"testing"

	"github.com/Kuma3D/PTTracker/internal/tag"
)

func strptr(s string) *string { return &s }

func TestResolveCurrentMessageWins(t *testing.T) {
	current := tag.Extract("[time: 14:05] [location: Library] [weather: clear] [heart: 300]")
	earlier := []tag.TagSet{tag.Extract("[time: 9:00] [location: Docks] [weather: fog] [heart: 100]")}

	snap := Resolve(current, earlier, Snapshot{})

	if snap.Time != "2:05 PM" {
		t.Errorf("Time = %q, want %q", snap.Time, "2:05 PM")
	}
	if snap.Location != "Library" {
		t.Errorf("Location = %q, want %q", snap.Location, "Library")
	}
	if snap.Weather != "clear" {
		t.Errorf("Weather = %q, want %q", snap.Weather, "clear")
	}
	if snap.HeartPoints != 300 {
		t.Errorf("HeartPoints = %d, want 300", snap.HeartPoints)
	}
}

func TestResolveFallsBackPerField(t *testing.T) {
	// The current message only advances time and heart; location comes from
	// an earlier message and weather stays unknown.
	current := tag.Extract("[time: 14:05][heart: 75000]")
	earlier := []tag.TagSet{
		tag.Extract("nothing tagged here"),
		tag.Extract("[location: Docks]"),
	}

	snap := Resolve(current, earlier, Snapshot{})

	if snap.Time != "2:05 PM" {
		t.Errorf("Time = %q, want %q", snap.Time, "2:05 PM")
	}
	if snap.Location != "Docks" {
		t.Errorf("Location = %q, want %q", snap.Location, "Docks")
	}
	if snap.Weather != "" {
		t.Errorf("Weather = %q, want unknown", snap.Weather)
	}
	if snap.HeartPoints != 75000 {
		t.Errorf("HeartPoints = %d, want 75000", snap.HeartPoints)
	}
}

func TestResolveUsesBaseWhenHistoryIsSilent(t *testing.T) {
	base := Snapshot{Time: "9:15 AM", Location: "Pier", Weather: "overcast", HeartPoints: 4200}
	snap := Resolve(tag.TagSet{}, nil, base)

	if snap.Time != base.Time || snap.Location != base.Location ||
		snap.Weather != base.Weather || snap.HeartPoints != base.HeartPoints {
		t.Errorf("snapshot = %+v, want base %+v", snap, base)
	}
}

func TestResolveEmptyTagClearsField(t *testing.T) {
	current := tag.Extract("[weather: ]")
	earlier := []tag.TagSet{tag.Extract("[weather: storm]")}
	base := Snapshot{Weather: "storm"}

	snap := Resolve(current, earlier, base)
	if snap.Weather != "" {
		t.Errorf("Weather = %q, want cleared", snap.Weather)
	}
}

func TestResolveHeart(t *testing.T) {
	tests := []struct {
		name    string
		current string
		earlier []string
		base    int
		want    int
	}{
		{"negative clamps to zero", "[heart: -50]", nil, 900, 0},
		{"large value kept", "[heart: 80000]", nil, 0, 80000},
		{"non numeric skipped to earlier", "[heart: lots]", []string{"[heart: 250]"}, 0, 250},
		{"non numeric everywhere falls to base", "[heart: lots]", []string{"[heart: ???]"}, 77, 77},
		{"absent falls to base", "no tags", nil, 1234, 1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var earlier []tag.TagSet
			for _, text := range tt.earlier {
				earlier = append(earlier, tag.Extract(text))
			}
			snap := Resolve(tag.Extract(tt.current), earlier, Snapshot{HeartPoints: tt.base})
			if snap.HeartPoints != tt.want {
				t.Errorf("HeartPoints = %d, want %d", snap.HeartPoints, tt.want)
			}
		})
	}
}

func TestResolveCharactersWholeListReplacement(t *testing.T) {
	current := tag.Extract("[char: Alice | state: calm]")
	earlier := []tag.TagSet{tag.Extract("[char: Bram][char: Mira]")}
	base := Snapshot{Characters: []tag.CharacterEntry{{Name: "Old Cast"}}}

	snap := Resolve(current, earlier, base)
	if len(snap.Characters) != 1 || snap.Characters[0].Name != "Alice" {
		t.Fatalf("Characters = %+v, want just Alice", snap.Characters)
	}

	// Without a char tag in the current message, the nearest earlier cast
	// replaces the list wholesale.
	snap = Resolve(tag.TagSet{}, earlier, base)
	if len(snap.Characters) != 2 || snap.Characters[0].Name != "Bram" || snap.Characters[1].Name != "Mira" {
		t.Fatalf("Characters = %+v, want Bram and Mira", snap.Characters)
	}

	snap = Resolve(tag.TagSet{}, nil, base)
	if len(snap.Characters) != 1 || snap.Characters[0].Name != "Old Cast" {
		t.Fatalf("Characters = %+v, want base cast", snap.Characters)
	}
}

func TestResolveDoesNotAliasInputs(t *testing.T) {
	cast := []tag.CharacterEntry{{Name: "Alice"}}
	base := Snapshot{Characters: cast}

	snap := Resolve(tag.TagSet{}, nil, base)
	snap.Characters[0].Name = "Changed"

	if cast[0].Name != "Alice" {
		t.Errorf("base cast mutated through resolved snapshot: %+v", cast)
	}
}

func TestResolveNearestEarlierWins(t *testing.T) {
	earlier := []tag.TagSet{
		{Location: strptr("Attic")},
		{Location: strptr("Cellar")},
	}
	snap := Resolve(tag.TagSet{}, earlier, Snapshot{})
	if snap.Location != "Attic" {
		t.Errorf("Location = %q, want nearest earlier %q", snap.Location, "Attic")
	}
}
