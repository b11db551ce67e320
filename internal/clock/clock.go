// Package clock provides the single time source shared by the engine, TUI
// and daemon so "today" is evaluated the same way everywhere in a session.
package clock

import (
	"fmt"
	"time"
)

// Clock reports the current instant and the location used for calendar-day
// bucketing.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type system struct {
	loc *time.Location
}

// System returns a wall clock pinned to loc. A nil loc means time.Local.
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return system{loc: loc}
}

func (s system) Now() time.Time           { return time.Now().In(s.loc) }
func (s system) Location() *time.Location { return s.loc }

// Fixed is a clock frozen at a single instant. Used in tests and for
// re-rendering a report exactly as it was computed.
type Fixed struct {
	At  time.Time
	Loc *time.Location
}

// Now returns the frozen instant in the clock's location.
func (f Fixed) Now() time.Time { return f.At.In(f.Location()) }

// Location returns Loc, or the instant's own location when Loc is nil.
func (f Fixed) Location() *time.Location {
	if f.Loc != nil {
		return f.Loc
	}
	return f.At.Location()
}

// LoadLocation resolves an IANA zone name. Empty means device local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// Today returns midnight of the current calendar day in c's location.
func Today(c Clock) time.Time {
	return StartOfDay(c.Now(), c.Location())
}

// StartOfDay truncates t to midnight of its calendar date in loc.
// Unlike Truncate(24h) this respects the zone offset and DST.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayKey formats t's calendar date in loc as YYYY-MM-DD. A nil loc means
// time.Local.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}
