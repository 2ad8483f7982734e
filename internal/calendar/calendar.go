// Package calendar pins month arithmetic to one reference timezone so the
// monthly rollover happens at the same instant for everyone, whatever the
// host clock is set to.
package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata" // embedded zoneinfo for hosts without it
)

const (
	DefaultTimezone = "Europe/Copenhagen"

	// ISOLayout matches JavaScript's Date.prototype.toISOString.
	ISOLayout = "2006-01-02T15:04:05.000Z"
)

// Calendar answers "what month is it" in a fixed location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Calendar for loc. A nil now uses time.Now.
func New(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

// Load resolves an IANA timezone name.
func Load(name string, now func() time.Time) (*Calendar, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return New(loc, now), nil
}

// Default returns the Europe/Copenhagen calendar on the wall clock.
func Default() *Calendar {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		// tzdata is embedded, so this cannot happen
		panic(err)
	}
	return New(loc, time.Now)
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// NowLocal returns the current instant in the calendar's location.
func (c *Calendar) NowLocal() time.Time {
	return c.now().In(c.loc)
}

// FirstOfMonth returns 00:00:00.000 on day 1 of t's month, in the calendar's
// location.
func (c *Calendar) FirstOfMonth(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, c.loc)
}

// CurrentMonthStart is FirstOfMonth(NowLocal()).
func (c *Calendar) CurrentMonthStart() time.Time {
	return c.FirstOfMonth(c.NowLocal())
}

// MonthBounds returns [start, end) of t's month.
func (c *Calendar) MonthBounds(t time.Time) (time.Time, time.Time) {
	start := c.FirstOfMonth(t)
	return start, start.AddDate(0, 1, 0)
}

// ShouldReset reports whether now is in a later calendar month than
// lastReset. A zero lastReset never triggers a reset.
func (c *Calendar) ShouldReset(lastReset time.Time) bool {
	if lastReset.IsZero() {
		return false
	}
	now := c.NowLocal()
	last := lastReset.In(c.loc)
	if now.Year() != last.Year() {
		return now.Year() > last.Year()
	}
	return now.Month() > last.Month()
}

// ShouldResetVariableEntries is ShouldReset for a stored ISO timestamp.
// nil and unparsable values return false.
func (c *Calendar) ShouldResetVariableEntries(lastResetISO *string) bool {
	if lastResetISO == nil {
		return false
	}
	t, err := ParseISO(*lastResetISO)
	if err != nil {
		return false
	}
	return c.ShouldReset(t)
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO accepts ISOLayout and any RFC 3339 timestamp.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(ISOLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// Fixed returns a clock that always reports t. Handy for tests and for
// replaying a given date from the command line.
func Fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
