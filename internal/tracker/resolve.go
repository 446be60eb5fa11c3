package tracker

import "github.com/Kuma3D/PTTracker/internal/tag"

// Resolve builds the snapshot for one AI message by walking the fallback
// chain per field: the message's own tags win, then the nearest earlier
// tagged message, then the persisted base state. earlier must be ordered
// nearest-first and already cut to the configured scan depth by the caller.
//
// A tag that is present but empty stops the chain and resolves to unknown,
// which is how a message explicitly clears a field. Time values are
// normalized to 12-hour form at this point, so snapshots always hold
// display-ready text.
func Resolve(current tag.TagSet, earlier []tag.TagSet, base Snapshot) Snapshot {
	out := Snapshot{
		Time:        resolveScalar(current.Time, earlier, timeField, base.Time),
		Location:    resolveScalar(current.Location, earlier, locationField, base.Location),
		Weather:     resolveScalar(current.Weather, earlier, weatherField, base.Weather),
		HeartPoints: resolveHeart(current, earlier, base.HeartPoints),
		Characters:  resolveCharacters(current, earlier, base.Characters),
	}
	out.Time = tag.To12Hour(out.Time)
	return out
}

type scalarField func(tag.TagSet) *string

func timeField(t tag.TagSet) *string     { return t.Time }
func locationField(t tag.TagSet) *string { return t.Location }
func weatherField(t tag.TagSet) *string  { return t.Weather }

func resolveScalar(cur *string, earlier []tag.TagSet, field scalarField, fallback string) string {
	if cur != nil {
		return *cur
	}
	for _, set := range earlier {
		if v := field(set); v != nil {
			return *v
		}
	}
	return fallback
}

// resolveHeart walks the chain looking for the first parseable heart value.
// Unparseable values are skipped rather than stopping the chain, so a
// malformed tag never zeroes the meter.
func resolveHeart(current tag.TagSet, earlier []tag.TagSet, fallback int) int {
	if current.Heart != nil {
		if n, ok := parseHeart(*current.Heart); ok {
			return n
		}
	}
	for _, set := range earlier {
		if set.Heart == nil {
			continue
		}
		if n, ok := parseHeart(*set.Heart); ok {
			return n
		}
	}
	return fallback
}

// resolveCharacters applies whole-list replacement: the first message in the
// chain that names any character supplies the entire cast.
func resolveCharacters(current tag.TagSet, earlier []tag.TagSet, fallback []tag.CharacterEntry) []tag.CharacterEntry {
	if len(current.Characters) > 0 {
		return cloneCharacters(current.Characters)
	}
	for _, set := range earlier {
		if len(set.Characters) > 0 {
			return cloneCharacters(set.Characters)
		}
	}
	return cloneCharacters(fallback)
}

func cloneCharacters(in []tag.CharacterEntry) []tag.CharacterEntry {
	if in == nil {
		return nil
	}
	out := make([]tag.CharacterEntry, len(in))
	copy(out, in)
	return out
}
