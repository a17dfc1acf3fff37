// Package timewindow computes civil-calendar day boundaries in a named
// timezone. Boundaries are derived from the civil date first and only then
// resolved to instants, so days shortened or stretched by DST transitions
// come out with their real 23- or 25-hour length.
package timewindow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayLabel is the display format for a civil day, e.g. "31-Oct-2026".
const DayLabel = "2-Jan-2006"

// ErrBadSelector marks a day selector that could not be parsed.
var ErrBadSelector = fmt.Errorf("unrecognized day selector")

// Window is one civil calendar day resolved to absolute instants.
// Start is inclusive, End exclusive.
type Window struct {
	Start time.Time
	End   time.Time
	Label string
}

// Duration is the real wall-clock length of the day; 23h or 25h on DST
// transition days.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether the instant falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Day returns the window for the civil day containing now in loc.
func Day(now time.Time, loc *time.Location) Window {
	return DaysAgo(0, now, loc)
}

// PreviousDay returns the window for "yesterday" in loc, regardless of the
// host timezone.
func PreviousDay(now time.Time, loc *time.Location) Window {
	return DaysAgo(1, now, loc)
}

// DaysAgo returns the window for the civil day n days before now in loc.
func DaysAgo(n int, now time.Time, loc *time.Location) Window {
	y, m, d := now.In(loc).Date()
	return civilDay(y, m, d-n, loc)
}

// civilDay resolves a (possibly denormalized) civil date to instants.
// time.Date normalizes the date arithmetic and picks the zone's actual UTC
// offset at each boundary, which is what makes DST days come out right.
func civilDay(year int, month time.Month, day int, loc *time.Location) Window {
	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	end := time.Date(year, month, day+1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: end, Label: start.Format(DayLabel)}
}

// ParseSelector turns user input into a day window. Accepted forms: a
// non-negative integer meaning "n days ago", or an explicit date like
// "31-Oct-2026". Malformed input yields ErrBadSelector, never a panic.
func ParseSelector(input string, now time.Time, loc *time.Location) (Window, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Window{}, fmt.Errorf("%w: empty input", ErrBadSelector)
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Window{}, fmt.Errorf("%w: %q (days ago must not be negative)", ErrBadSelector, input)
		}
		return DaysAgo(n, now, loc), nil
	}
	t, err := time.ParseInLocation(DayLabel, s, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrBadSelector, input)
	}
	y, m, d := t.Date()
	return civilDay(y, m, d, loc), nil
}
