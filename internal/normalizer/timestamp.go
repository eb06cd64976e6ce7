package normalizer

import (
	"strings"
	"time"
)

// DefaultTimestampLayouts are tried in order. Day-first layouts come before
// anything month-first because the exports are day-first.
var DefaultTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
}

// ParseTimestamp reads value with the first matching layout. Layouts without a
// zone are read in loc. ok is false when nothing matches.
func ParseTimestamp(value string, layouts []string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// DaysSince counts whole calendar days from created to at, using at's
// location for both dates. A negative span (created in the future) returns
// ok=false: the age is unknown, not zero.
func DaysSince(created, at time.Time) (int, bool) {
	loc := at.Location()
	cy, cm, cd := created.In(loc).Date()
	ay, am, ad := at.Date()

	from := time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)

	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0, false
	}
	return days, true
}
