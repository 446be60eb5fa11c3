// Package prompt assembles the instruction block injected into the model's
// context each turn. The block teaches the tag syntax, then embeds the
// current resolved state in that same syntax, closing the loop: the model
// emits tags, the extractor parses them, the next prompt carries the update.
package prompt

import (
	"strconv"
	"strings"

	"github.com/Kuma3D/PTTracker/internal/tag"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// unknownPrompt stands in for never-resolved fields inside prompt text. It
// is deliberately lowercase so the model reads it as a word, not a proper
// noun it might adopt as a location name.
const unknownPrompt = "unknown"

const instructionHeader = `Story tracker. At the very end of every reply, on their own line, emit these status tags:

[time: <clock, 12-hour, optionally "; Day N">] [location: <place>] [weather: <conditions>] [heart: <points>]`

const characterInstruction = `[char: <Name> | outfit: <clothing> | state: <mood or condition> | position: <where in the scene>]

Emit one [char: ...] tag per character currently present in the scene. Omit detail segments you cannot fill; never omit the name.`

const instructionRules = `Rules:
- Emit every tag in every reply. Update only values that changed; repeat the rest unchanged.
- heart is a whole number. Adjust it in small steps to reflect how the relationship shifts this turn; it never goes below 0.

Heart scale:
0-4999 🤍 strangers | 5000-9999 💛 acquainted | 10000-19999 🧡 friendly | 20000-29999 ❤️ close | 30000-44999 💕 affectionate | 45000-59999 💖 devoted | 60000+ 💘 inseparable`

// Build produces the full injected prompt for the next model turn.
func Build(snap tracker.Snapshot, s tracker.Settings) string {
	sections := []string{instructionHeader}
	if s.TrackCharacters {
		sections = append(sections, characterInstruction)
	}
	sections = append(sections, instructionRules)
	sections = append(sections, "Current state:\n"+StateBlock(snap, s))
	return strings.Join(sections, "\n\n")
}

// StateBlock renders the snapshot as one line of bracketed tags, the same
// syntax the extractor parses. Every scalar tag is present, with "unknown"
// standing in for unresolved fields, so the model always sees the complete
// vocabulary. Character tags follow on the same line when tracking is on.
func StateBlock(snap tracker.Snapshot, s tracker.Settings) string {
	parts := []string{
		"[time: " + promptValue(snap.Time) + "]",
		"[location: " + promptValue(snap.Location) + "]",
		"[weather: " + promptValue(snap.Weather) + "]",
		"[heart: " + strconv.Itoa(snap.HeartPoints) + "]",
	}
	if s.TrackCharacters {
		for _, c := range snap.Characters {
			parts = append(parts, tag.CharacterLine(c))
		}
	}
	return strings.Join(parts, " ")
}

func promptValue(v string) string {
	if v == "" {
		return unknownPrompt
	}
	return v
}
