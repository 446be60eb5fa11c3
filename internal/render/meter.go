// Package render formats resolved tracker snapshots into the header text
// shown above each AI message.
package render

// meterTiers maps ascending point thresholds to the heart emoji shown at
// that relationship tier. Bucketing walks the list in order; points at or
// above the last threshold land in the top tier.
var meterTiers = []struct {
	below int
	emoji string
}{
	{5000, "🤍"},
	{10000, "💛"},
	{20000, "🧡"},
	{30000, "❤️"},
	{45000, "💕"},
	{60000, "💖"},
}

// topTierEmoji is shown at or above the final threshold.
const topTierEmoji = "💘"

// MeterEmoji selects the heart emoji for a point total. Negative input is
// clamped to zero before bucketing.
func MeterEmoji(points int) string {
	if points < 0 {
		points = 0
	}
	for _, tier := range meterTiers {
		if points < tier.below {
			return tier.emoji
		}
	}
	return topTierEmoji
}
