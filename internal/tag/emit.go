package tag

import "strings"

// Line renders one scalar tag in canonical form: "[key: value]". The output
// parses back to the same value through Extract as long as the value itself
// contains no closing bracket.
func Line(key, value string) string {
	return "[" + key + ": " + value + "]"
}

// CharacterLine renders a character entry as a canonical [char: ...] tag,
// omitting empty detail segments. The output round-trips through Extract.
func CharacterLine(e CharacterEntry) string {
	segments := []string{e.Name}
	if e.Outfit != "" {
		segments = append(segments, "outfit: "+e.Outfit)
	}
	if e.State != "" {
		segments = append(segments, "state: "+e.State)
	}
	if e.Position != "" {
		segments = append(segments, "position: "+e.Position)
	}
	return "[char: " + strings.Join(segments, " | ") + "]"
}
