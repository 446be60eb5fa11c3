package tag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// clockPattern matches a 24-hour clock value: H:MM or H:MM:SS with a one or
// two digit hour, optionally followed by a "; ..." suffix carrying a day or
// date annotation. The suffix (including its leading whitespace) is captured
// so it can be carried over verbatim.
var clockPattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})(?::(\d{2}))?(\s*;.*)?$`)

// To12Hour converts a 24-hour time expression to 12-hour AM/PM form.
// "14:05" becomes "2:05 PM", "0:07; Day 3" becomes "12:07 AM; Day 3", and
// seconds are dropped. Values already carrying AM or PM, and values that do
// not look like a clock at all ("around noon", "25:00"), are returned
// unchanged, which also makes the conversion idempotent.
func To12Hour(value string) string {
	upper := strings.ToUpper(value)
	if strings.Contains(upper, "AM") || strings.Contains(upper, "PM") {
		return value
	}

	m := clockPattern.FindStringSubmatch(value)
	if m == nil {
		return value
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return value
	}

	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}

	return fmt.Sprintf("%d:%s %s%s", hour, m[2], period, m[4])
}
