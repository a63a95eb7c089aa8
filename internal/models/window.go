package models

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the CLI and report date format
const DateLayout = "2006-01-02"

// MonthLayout formats the month key of a statistics row
const MonthLayout = "2006-01"

// Window is an inclusive UTC date range
type Window struct {
	Since time.Time
	Until time.Time
}

// NewWindow truncates both ends to UTC dates and validates the order
func NewWindow(since, until time.Time) (Window, error) {
	w := Window{Since: truncateDay(since), Until: truncateDay(until)}
	if w.Until.Before(w.Since) {
		return Window{}, fmt.Errorf("window end %s is before start %s", w.Until.Format(DateLayout), w.Since.Format(DateLayout))
	}
	return w, nil
}

// ParseWindow builds a window from YYYY-MM-DD strings. Empty values default to
// today (until) and defaultDays before until (since).
func ParseWindow(since, until string, defaultDays int, now time.Time) (Window, error) {
	end := truncateDay(now)
	if until != "" {
		t, err := time.Parse(DateLayout, until)
		if err != nil {
			return Window{}, fmt.Errorf("invalid until date %q: %w", until, err)
		}
		end = t
	}

	var start time.Time
	if since != "" {
		t, err := time.Parse(DateLayout, since)
		if err != nil {
			return Window{}, fmt.Errorf("invalid since date %q: %w", since, err)
		}
		start = t
	} else {
		if defaultDays <= 0 {
			return Window{}, errors.New("default window must be at least one day")
		}
		start = end.AddDate(0, 0, -defaultDays)
	}

	return NewWindow(start, end)
}

// Start is the first instant inside the window
func (w Window) Start() time.Time {
	return w.Since
}

// End is the first instant after the window
func (w Window) End() time.Time {
	return w.Until.AddDate(0, 0, 1)
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	t = t.UTC()
	return !t.Before(w.Start()) && t.Before(w.End())
}

// ContainsPullRequest filters pull requests by creation time
func (w Window) ContainsPullRequest(pr *PullRequest) bool {
	return w.Contains(pr.CreatedAt)
}

// ContainsReview filters reviews by submission time
func (w Window) ContainsReview(r *PRReview) bool {
	return w.Contains(r.SubmittedAt)
}

// ContainsComment filters comments by creation time
func (w Window) ContainsComment(c *ReviewComment) bool {
	return w.Contains(c.CreatedAt)
}

// String renders the window as since..until
func (w Window) String() string {
	return w.Since.Format(DateLayout) + ".." + w.Until.Format(DateLayout)
}

// MonthKey returns the YYYY-MM month of t in UTC
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
