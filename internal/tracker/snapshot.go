// Package tracker maintains the story state derived from tagged messages:
// one resolved snapshot per AI message, persistent settings, and the
// fallback resolution that fills gaps from earlier messages.
package tracker

import (
	"strconv"
	"strings"

	"github.com/Kuma3D/PTTracker/internal/tag"
)

// Snapshot is the fully resolved story state attached to one AI message.
// Scalar fields hold display-ready text; an empty string means the value was
// never established and renders as "Unknown".
type Snapshot struct {
	// Time is the in-story clock in 12-hour form, e.g. "2:05 PM; Day 3".
	Time string `json:"time"`

	// Location is the current scene location.
	Location string `json:"location"`

	// Weather is the current weather description.
	Weather string `json:"weather"`

	// HeartPoints is the accumulated affection score. Never negative.
	HeartPoints int `json:"heart_points"`

	// Characters lists the scene participants, in tag order. The list is
	// replaced wholesale whenever a message carries any char tag.
	Characters []tag.CharacterEntry `json:"characters,omitempty"`
}

// Clone returns a deep copy, so callers can hand snapshots across goroutines
// without sharing the character slice.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Characters != nil {
		out.Characters = make([]tag.CharacterEntry, len(s.Characters))
		copy(out.Characters, s.Characters)
	}
	return out
}

// TagText renders the snapshot back into canonical tag lines, one per known
// field, separated by single spaces. Unknown fields are omitted. The output
// parses back to an equivalent snapshot, which is what keeps the model's
// tag vocabulary stable across prompt rounds.
func (s Snapshot) TagText() string {
	var parts []string
	if s.Time != "" {
		parts = append(parts, tag.Line("time", s.Time))
	}
	if s.Location != "" {
		parts = append(parts, tag.Line("location", s.Location))
	}
	if s.Weather != "" {
		parts = append(parts, tag.Line("weather", s.Weather))
	}
	parts = append(parts, tag.Line("heart", strconv.Itoa(s.HeartPoints)))
	for _, c := range s.Characters {
		parts = append(parts, tag.CharacterLine(c))
	}
	return strings.Join(parts, " ")
}

// parseHeart converts a raw heart tag value to a usable point count.
// Negative values clamp to zero; non-numeric values report ok=false and are
// treated as if the tag were absent.
func parseHeart(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	if n < 0 {
		n = 0
	}
	return n, true
}
