package availability

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
)

// Interval is a half-open time range [Start, End) in UTC.
// Proposal slots and stored availability windows share this type.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds an interval normalized to UTC.
func New(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// Validate reports MalformedSlot when the interval is empty or inverted.
func (iv Interval) Validate() error {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return apperr.MalformedSlot("slot must have start and end")
	}
	if !iv.Start.Before(iv.End) {
		return apperr.MalformedSlot("slot start %s must be before end %s",
			FormatTimestamp(iv.Start), FormatTimestamp(iv.End))
	}
	return nil
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether other lies entirely inside iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Equal compares instants, ignoring location.
func (iv Interval) Equal(other Interval) bool {
	return iv.Start.Equal(other.Start) && iv.End.Equal(other.End)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", FormatTimestamp(iv.Start), FormatTimestamp(iv.End))
}

// Raw returns the serialized string form.
func (iv Interval) Raw() RawInterval {
	return RawInterval{Start: FormatTimestamp(iv.Start), End: FormatTimestamp(iv.End)}
}

func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(iv.Raw())
}

// UnmarshalJSON parses and validates the slot, so a decoded Interval is always well-formed.
func (iv *Interval) UnmarshalJSON(data []byte) error {
	var raw RawInterval
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperr.MalformedSlot("slot must be an object with start and end")
	}
	parsed, err := raw.Parse()
	if err != nil {
		return err
	}
	*iv = parsed
	return nil
}

// RawInterval is the wire form of an interval: two ISO-8601 strings.
type RawInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Parse converts the raw form into a validated Interval.
func (r RawInterval) Parse() (Interval, error) {
	if r.Start == "" || r.End == "" {
		return Interval{}, apperr.MalformedSlot("slot must have start and end")
	}
	start, err := ParseTimestamp(r.Start)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseTimestamp(r.End)
	if err != nil {
		return Interval{}, err
	}
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// ParseLenient parses what it can and silently drops malformed or empty entries.
func ParseLenient(raw []RawInterval) []Interval {
	out := make([]Interval, 0, len(raw))
	for _, r := range raw {
		iv, err := r.Parse()
		if err != nil {
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Normalize drops invalid intervals and returns a copy sorted by start.
func Normalize(intervals []Interval) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Validate() == nil {
			out = append(out, New(iv.Start, iv.End))
		}
	}
	sortByStart(out)
	return out
}

// Merge returns normalized intervals with overlapping members joined, so the
// result is sorted and pairwise disjoint. Touching intervals stay separate.
func Merge(intervals []Interval) []Interval {
	sorted := Normalize(intervals)
	out := make([]Interval, 0, len(sorted))
	for _, iv := range sorted {
		if n := len(out); n > 0 && iv.Start.Before(out[n-1].End) {
			out[n-1].End = later(out[n-1].End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}

// IndexOf returns the position of slot in slots or -1.
func IndexOf(slots []Interval, slot Interval) int {
	return slices.IndexFunc(slots, slot.Equal)
}

func sortByStart(intervals []Interval) {
	slices.SortStableFunc(intervals, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})
}

// Intersect returns the pairwise overlaps of two interval sets.
// Inputs are not modified; each is sorted by start before a linear merge.
// On equal ends the pointer into a advances.
func Intersect(a, b []Interval) []Interval {
	left := slices.Clone(a)
	right := slices.Clone(b)
	sortByStart(left)
	sortByStart(right)

	var out []Interval
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		start := later(left[i].Start, right[j].Start)
		end := earlier(left[i].End, right[j].End)
		if start.Before(end) {
			out = append(out, Interval{Start: start, End: end})
		}

		if right[j].End.Before(left[i].End) {
			j++
		} else {
			i++
		}
	}
	return out
}

// Slice cuts every interval into windows of the given duration, starting at the
// interval start and advancing by step. A window never extends past its interval end.
// Non-positive duration or step yields no windows.
func Slice(intervals []Interval, duration, step time.Duration) []Interval {
	return sliceLimited(intervals, duration, step, -1)
}

func sliceLimited(intervals []Interval, duration, step time.Duration, limit int) []Interval {
	if duration <= 0 || step <= 0 || limit == 0 {
		return nil
	}

	var out []Interval
	for _, iv := range intervals {
		for cursor := iv.Start; !cursor.Add(duration).After(iv.End); cursor = cursor.Add(step) {
			out = append(out, Interval{Start: cursor, End: cursor.Add(duration)})
			if limit > 0 && len(out) == limit {
				return out
			}
		}
	}
	return out
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
