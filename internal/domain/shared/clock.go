package shared

import "time"

// BusinessOffsetSeconds is the fixed UTC offset of the local business day (+05:30)
const BusinessOffsetSeconds = 5*3600 + 30*60

// BusinessZone is the fixed zone in which business days start at local midnight
var BusinessZone = time.FixedZone("IST", BusinessOffsetSeconds)

// DateKeyLayout is the layout of date components embedded in cache keys
const DateKeyLayout = "2006-01-02"

// Clock supplies the current instant. Services take a Clock so tests can pin time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

// Now implements Clock
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock returns the wall clock in UTC
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t.UTC() })
}

// DayWindow is a half-open UTC interval [Start, End) covering one local business day
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DateKey returns the local date of the window as yyyy-mm-dd
func (w DayWindow) DateKey() string {
	return w.Start.In(BusinessZone).Format(DateKeyLayout)
}

// BusinessDay returns the local business day containing t
func BusinessDay(t time.Time) DayWindow {
	local := t.In(BusinessZone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, BusinessZone)
	return DayWindow{
		Start: start.UTC(),
		End:   start.Add(24 * time.Hour).UTC(),
	}
}

// TodayWindow returns the business day containing clock.Now()
func TodayWindow(clock Clock) DayWindow {
	return BusinessDay(clock.Now())
}

// ParseBusinessDate parses a yyyy-mm-dd local date into its business day window
func ParseBusinessDate(date string) (DayWindow, error) {
	d, err := time.ParseInLocation(DateKeyLayout, date, BusinessZone)
	if err != nil {
		return DayWindow{}, NewValidationError("date must be formatted as yyyy-mm-dd")
	}
	return BusinessDay(d), nil
}
