// Package availability implements interval algebra over availability windows:
// parsing, intersection, slicing into fixed-length slots and matching two schedules.
package availability

import (
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
)

// TimestampLayout is the canonical serialized form: UTC, whole seconds, literal Z.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Layouts carrying an explicit offset or Z.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Layouts without offset, interpreted as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp and returns it in UTC.
// A trailing Z and explicit offsets are honored; a timestamp without offset is taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.MalformedTimestamp("empty timestamp")
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, apperr.MalformedTimestamp("cannot parse timestamp %q", s)
}

// FormatTimestamp renders t as UTC with second precision and a Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
