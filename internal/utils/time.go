package utils

import (
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/habitlog/internal/constants"
)

// Clock answers "what day is it" for the habit engine. All calendar
// arithmetic happens on dates in the clock's location, so "today" follows
// the user's configured timezone rather than the machine's.
type Clock struct {
	mu  sync.RWMutex
	loc *time.Location
	now func() time.Time
}

// NewClock returns a clock for the given IANA timezone ("" or "Local" means system local).
func NewClock(timezone string) (*Clock, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// FixedClock returns a clock frozen at the given instant. Intended for tests.
func FixedClock(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

// Now returns the current instant in the clock's location
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().In(c.loc)
}

// Location returns the clock's timezone
func (c *Clock) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loc
}

// SetLocation switches the clock to another timezone
func (c *Clock) SetLocation(loc *time.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loc = loc
}

// Today returns today's date string (YYYY-MM-DD) in the clock's location
func (c *Clock) Today() string {
	return c.Now().Format(constants.DateFormat)
}

// Set moves a fixed clock to t. It has no effect on the zone of the clock.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = func() time.Time { return t }
}

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC of that calendar day.
// Dates are compared as civil days, so UTC avoids DST-length days.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(constants.DateFormat, date)
}

// ValidateDate reports whether the string is a well-formed YYYY-MM-DD date
func ValidateDate(date string) bool {
	_, err := ParseDate(date)
	return err == nil
}

// AddDays returns the date string offset by n calendar days
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(constants.DateFormat), nil
}

// DaysBetween returns the number of calendar days from a to b (b - a)
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
