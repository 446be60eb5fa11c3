package tag

import (
	"regexp"
	"strings"
)

// Tag patterns are compiled once at package init. Keys match
// case-insensitively, whitespace around key and value is tolerated, and the
// value runs to the first closing bracket, so values themselves may not
// contain "]".
var (
	timePattern     = regexp.MustCompile(`(?i)\[\s*time\s*:\s*([^\]]*)\]`)
	locationPattern = regexp.MustCompile(`(?i)\[\s*location\s*:\s*([^\]]*)\]`)
	weatherPattern  = regexp.MustCompile(`(?i)\[\s*weather\s*:\s*([^\]]*)\]`)
	heartPattern    = regexp.MustCompile(`(?i)\[\s*heart\s*:\s*([^\]]*)\]`)
	charPattern     = regexp.MustCompile(`(?i)\[\s*char\s*:\s*([^\]]*)\]`)

	// stripPattern removes every tracker tag, plus any horizontal whitespace
	// immediately before it, so stripping leaves no doubled spaces behind.
	stripPattern = regexp.MustCompile(`(?i)[ \t]*\[\s*(?:time|location|weather|heart|char)\s*:[^\]]*\]`)
)

// Extract scans text for tracker tags and returns whatever it finds. For the
// scalar keys only the first occurrence counts; every char tag is collected
// in message order. Captured values are whitespace-trimmed but otherwise
// untouched.
func Extract(text string) TagSet {
	var set TagSet

	set.Time = firstMatch(timePattern, text)
	set.Location = firstMatch(locationPattern, text)
	set.Weather = firstMatch(weatherPattern, text)
	set.Heart = firstMatch(heartPattern, text)

	for _, m := range charPattern.FindAllStringSubmatch(text, -1) {
		if entry, ok := parseCharacter(m[1]); ok {
			set.Characters = append(set.Characters, entry)
		}
	}

	return set
}

// firstMatch returns the trimmed first capture of re in text, or nil when
// the pattern does not occur.
func firstMatch(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	return &v
}

// Strip removes all tracker tags from text, for display copy that should not
// show the raw bracket syntax.
func Strip(text string) string {
	return strings.TrimSpace(stripPattern.ReplaceAllString(text, ""))
}

// StripExpr returns the tag-removal pattern as a regex source string, in the
// form host display filters expect.
func StripExpr() string {
	return stripPattern.String()
}
