package engine

import (
	"fmt"
	"time"
)

// DateFormat is the calendar date layout used by windows and the readings date column
const DateFormat = "2006-01-02"

// Window is an inclusive range of calendar dates
type Window struct {
	Start time.Time
	End   time.Time
}

// NormalizeWindow resolves optional start/end date strings. A missing end
// becomes the date of now; a missing start becomes end minus defaultDays.
func NormalizeWindow(start, end string, now time.Time, defaultDays int) (Window, error) {
	var w Window

	if end == "" {
		w.End = truncateDay(now)
	} else {
		t, err := time.ParseInLocation(DateFormat, end, now.Location())
		if err != nil {
			return Window{}, fmt.Errorf("%w: end %q: %v", ErrInvalidDateRange, end, err)
		}
		w.End = t
	}

	if start == "" {
		w.Start = w.End.AddDate(0, 0, -defaultDays)
	} else {
		t, err := time.ParseInLocation(DateFormat, start, now.Location())
		if err != nil {
			return Window{}, fmt.Errorf("%w: start %q: %v", ErrInvalidDateRange, start, err)
		}
		w.Start = t
	}

	if w.Start.After(w.End) {
		return Window{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange,
			w.Start.Format(DateFormat), w.End.Format(DateFormat))
	}

	return w, nil
}

// StartDate returns the start formatted as a date string
func (w Window) StartDate() string { return w.Start.Format(DateFormat) }

// EndDate returns the end formatted as a date string
func (w Window) EndDate() string { return w.End.Format(DateFormat) }

// Until returns the exclusive upper instant: midnight after End
func (w Window) Until() time.Time {
	return w.End.AddDate(0, 0, 1)
}

// ContainsDate reports whether the calendar date of t lies in the window
func (w Window) ContainsDate(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(truncateDay(w.Start)) && !d.After(truncateDay(w.End))
}

func (w Window) String() string {
	return w.StartDate() + ".." + w.EndDate()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
