package render

import (
	"strconv"
	"strings"

	"github.com/Kuma3D/PTTracker/internal/tag"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// unknownDisplay is shown for fields that were never resolved to a value.
const unknownDisplay = "Unknown"

// Header renders the status block for one message: one line per enabled
// scalar field in fixed order, then a separated character block when
// character tracking is on and the cast is non-empty. Disabled fields
// produce no line at all.
func Header(snap tracker.Snapshot, s tracker.Settings) string {
	var lines []string

	if s.ShowTime {
		lines = append(lines, "Time: "+displayValue(snap.Time))
	}
	if s.ShowLocation {
		lines = append(lines, "Location: "+displayValue(snap.Location))
	}
	if s.ShowWeather {
		lines = append(lines, "Weather: "+displayValue(snap.Weather))
	}
	if s.ShowHeart {
		lines = append(lines, MeterEmoji(snap.HeartPoints)+" "+strconv.Itoa(snap.HeartPoints))
	}

	if s.TrackCharacters && s.ShowCharacters && len(snap.Characters) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, characterBlock(snap.Characters)...)
	}

	return strings.Join(lines, "\n")
}

// characterBlock is the cast summary: one line naming everyone present,
// then a detail line per character that has any detail to show.
func characterBlock(cast []tag.CharacterEntry) []string {
	names := make([]string, len(cast))
	for i, c := range cast {
		names[i] = c.Name
	}
	lines := []string{"Characters: " + strings.Join(names, ", ")}

	for _, c := range cast {
		if details := characterDetails(c); details != "" {
			lines = append(lines, c.Name+": "+details)
		}
	}
	return lines
}

func characterDetails(c tag.CharacterEntry) string {
	var parts []string
	if c.Outfit != "" {
		parts = append(parts, c.Outfit)
	}
	if c.State != "" {
		parts = append(parts, c.State)
	}
	if c.Position != "" {
		parts = append(parts, c.Position)
	}
	return strings.Join(parts, " | ")
}

func displayValue(v string) string {
	if v == "" {
		return unknownDisplay
	}
	return v
}
