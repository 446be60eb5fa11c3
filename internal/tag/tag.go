// Package tag extracts bracketed [key: value] tokens from AI-generated
// message text. Extraction is best-effort and silent: text that carries no
// recognizable tags yields an empty TagSet, never an error.
package tag

import "strings"

// TagSet is the result of parsing one message's text. A nil scalar field
// means the tag was absent; a pointer to "" means the tag was present but
// empty. The distinction matters to the fallback resolver, which only
// backfills absent fields.
type TagSet struct {
	// Time is the raw extracted time expression, unvalidated beyond the
	// bracket match (normalization happens at resolution time).
	Time *string

	// Location is the raw extracted location text.
	Location *string

	// Weather is the raw extracted weather text.
	Weather *string

	// Heart is the raw heart-point text, not yet parsed to an integer.
	Heart *string

	// Characters lists every [char: ...] tag in the order it appears.
	Characters []CharacterEntry
}

// Empty reports whether the set carries no tracker data at all: no scalar
// field present and no character entries. Callers use this to skip messages
// that have nothing to track (e.g. a greeting with no tags).
func (t TagSet) Empty() bool {
	return t.Time == nil && t.Location == nil && t.Weather == nil &&
		t.Heart == nil && len(t.Characters) == 0
}

// CharacterEntry is one scene participant described by a [char: ...] tag.
// Name is required; entries whose name was never determined are discarded
// during extraction.
type CharacterEntry struct {
	Name     string `json:"name"`
	Outfit   string `json:"outfit,omitempty"`
	State    string `json:"state,omitempty"`
	Position string `json:"position,omitempty"`
}

// parseCharacter parses the body of a [char: ...] tag: a pipe-delimited list
// of "key: value" segments. Recognized keys are name, outfit, state and
// position (case-insensitive). A first segment with no recognized key is the
// bare-name shorthand. Returns ok=false when no name was ever determined.
func parseCharacter(body string) (CharacterEntry, bool) {
	var e CharacterEntry
	named := false

	for i, seg := range strings.Split(body, "|") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		key, value, hasColon := strings.Cut(seg, ":")
		if hasColon {
			v := strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "name":
				e.Name = v
				named = named || v != ""
				continue
			case "outfit":
				e.Outfit = v
				continue
			case "state":
				e.State = v
				continue
			case "position":
				e.Position = v
				continue
			}
		}

		// Unrecognized key, or no colon at all. Only the very first segment
		// may claim the name slot (bare-name shorthand).
		if i == 0 && !named {
			e.Name = seg
			named = true
		}
	}

	if !named || e.Name == "" {
		return CharacterEntry{}, false
	}
	return e, true
}
