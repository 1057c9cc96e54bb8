package availability

import "time"

// MatchOptions controls slot generation for common availability.
type MatchOptions struct {
	Duration time.Duration
	Step     time.Duration
	Limit    int
}

// DefaultMatchOptions returns one-hour slots every thirty minutes, at most twenty.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		Duration: 60 * time.Minute,
		Step:     30 * time.Minute,
		Limit:    20,
	}
}

// CommonSlots returns up to opts.Limit slots that fit inside both a and b,
// ascending by start without duplicates. Invalid intervals are ignored and
// overlapping windows of one party are merged first.
func CommonSlots(a, b []Interval, opts MatchOptions) []Interval {
	if opts.Limit <= 0 {
		return []Interval{}
	}
	overlap := Intersect(Merge(a), Merge(b))
	slots := sliceLimited(overlap, opts.Duration, opts.Step, opts.Limit)
	if slots == nil {
		return []Interval{}
	}
	return slots
}

// ComputeCommonSlots is the raw-string form of CommonSlots. Entries that fail
// to parse or are empty are discarded; the result is serialized with a Z suffix.
func ComputeCommonSlots(a, b []RawInterval, opts MatchOptions) []RawInterval {
	slots := CommonSlots(ParseLenient(a), ParseLenient(b), opts)

	out := make([]RawInterval, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Raw())
	}
	return out
}
