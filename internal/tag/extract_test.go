package tag

import (
	"regexp"
	"testing"
)

func strVal(t *testing.T, p *string) string {
	t.Helper()
	if p == nil {
		t.Fatal("field is nil, want a value")
	}
	return *p
}

func TestExtractScalars(t *testing.T) {
	set := Extract("She nods. [time:  14:30 ] [location: Market Square] [weather: light rain] [heart: 1200]")

	if got := strVal(t, set.Time); got != "14:30" {
		t.Errorf("Time = %q, want %q", got, "14:30")
	}
	if got := strVal(t, set.Location); got != "Market Square" {
		t.Errorf("Location = %q, want %q", got, "Market Square")
	}
	if got := strVal(t, set.Weather); got != "light rain" {
		t.Errorf("Weather = %q, want %q", got, "light rain")
	}
	if got := strVal(t, set.Heart); got != "1200" {
		t.Errorf("Heart = %q, want %q", got, "1200")
	}
}

func TestExtractCaseInsensitiveKeys(t *testing.T) {
	set := Extract("[TIME: 8:00] [Location: Pier] [WeAtHeR: fog]")

	if got := strVal(t, set.Time); got != "8:00" {
		t.Errorf("Time = %q, want %q", got, "8:00")
	}
	if got := strVal(t, set.Location); got != "Pier" {
		t.Errorf("Location = %q, want %q", got, "Pier")
	}
	if got := strVal(t, set.Weather); got != "fog" {
		t.Errorf("Weather = %q, want %q", got, "fog")
	}
}

func TestExtractAbsentVersusEmpty(t *testing.T) {
	set := Extract("no tags here at all")
	if !set.Empty() {
		t.Errorf("Empty() = false for untagged text, want true")
	}
	if set.Time != nil {
		t.Errorf("Time = %q, want nil for absent tag", *set.Time)
	}

	set = Extract("[weather: ]")
	if set.Weather == nil {
		t.Fatal("Weather = nil, want present-but-empty value")
	}
	if *set.Weather != "" {
		t.Errorf("Weather = %q, want empty string", *set.Weather)
	}
	if set.Empty() {
		t.Error("Empty() = true with a present weather tag, want false")
	}
}

func TestExtractFirstScalarWins(t *testing.T) {
	set := Extract("[time: 9:00] later that day [time: 21:00]")
	if got := strVal(t, set.Time); got != "9:00" {
		t.Errorf("Time = %q, want first occurrence %q", got, "9:00")
	}
}

func TestExtractCharacters(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []CharacterEntry
	}{
		{
			name: "bare name shorthand",
			text: "[char: Alice]",
			want: []CharacterEntry{{Name: "Alice"}},
		},
		{
			name: "full detail segments",
			text: "[char: Mira | outfit: travel cloak | state: wary | position: by the door]",
			want: []CharacterEntry{{Name: "Mira", Outfit: "travel cloak", State: "wary", Position: "by the door"}},
		},
		{
			name: "explicit name key",
			text: "[char: name: Bram | state: asleep]",
			want: []CharacterEntry{{Name: "Bram", State: "asleep"}},
		},
		{
			name: "segment keys are case insensitive",
			text: "[char: NAME: Ada | OUTFIT: uniform]",
			want: []CharacterEntry{{Name: "Ada", Outfit: "uniform"}},
		},
		{
			name: "unrecognized later segment is ignored",
			text: "[char: Alice | mood: cheerful | state: smiling]",
			want: []CharacterEntry{{Name: "Alice", State: "smiling"}},
		},
		{
			name: "first segment with unrecognized key becomes the name whole",
			text: "[char: Dr. Venn: the apothecary | position: counter]",
			want: []CharacterEntry{{Name: "Dr. Venn: the apothecary", Position: "counter"}},
		},
		{
			name: "entry without a name is discarded",
			text: "[char: outfit: red dress]",
			want: nil,
		},
		{
			name: "empty segments are skipped",
			text: "[char: Alice | | state: calm |]",
			want: []CharacterEntry{{Name: "Alice", State: "calm"}},
		},
		{
			name: "multiple tags keep message order",
			text: "[char: Alice] some narration [char: Bram | position: stairs]",
			want: []CharacterEntry{{Name: "Alice"}, {Name: "Bram", Position: "stairs"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text).Characters
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStrip(t *testing.T) {
	text := "The rain eases. [time: 14:05] [weather: drizzle]\nShe smiles. [char: Alice | state: pleased]"
	got := Strip(text)
	want := "The rain eases.\nShe smiles."
	if got != want {
		t.Errorf("Strip() = %q, want %q", got, want)
	}

	if got := Strip("no tags"); got != "no tags" {
		t.Errorf("Strip() = %q, want input unchanged", got)
	}
}

func TestStripExprCompiles(t *testing.T) {
	re, err := regexp.Compile(StripExpr())
	if err != nil {
		t.Fatalf("StripExpr() does not compile: %v", err)
	}
	if !re.MatchString("[time: 9:00]") {
		t.Error("StripExpr() pattern does not match a time tag")
	}
	if !re.MatchString("[HEART: 500]") {
		t.Error("StripExpr() pattern does not match an uppercase heart tag")
	}
}

func TestEmitRoundTrip(t *testing.T) {
	set := Extract(Line("location", "Docks") + " " + Line("weather", "overcast"))
	if got := strVal(t, set.Location); got != "Docks" {
		t.Errorf("Location = %q, want %q", got, "Docks")
	}
	if got := strVal(t, set.Weather); got != "overcast" {
		t.Errorf("Weather = %q, want %q", got, "overcast")
	}

	entry := CharacterEntry{Name: "Mira", Outfit: "travel cloak", State: "wary", Position: "by the door"}
	parsed := Extract(CharacterLine(entry)).Characters
	if len(parsed) != 1 {
		t.Fatalf("got %d entries, want 1", len(parsed))
	}
	if parsed[0] != entry {
		t.Errorf("round trip = %+v, want %+v", parsed[0], entry)
	}

	sparse := CharacterEntry{Name: "Bram"}
	if got := CharacterLine(sparse); got != "[char: Bram]" {
		t.Errorf("CharacterLine() = %q, want %q", got, "[char: Bram]")
	}
}
