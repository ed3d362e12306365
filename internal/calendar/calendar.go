// Package calendar holds the local-day and week-interval arithmetic used for
// quota tracking, plus the ISO-8601 formatting used for seeds and storage.
package calendar

import (
	"fmt"
	"time"
)

// ISOLayout is UTC with millisecond precision, e.g. 2025-01-03T12:00:00.000Z.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t in UTC using ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO accepts RFC 3339 timestamps with or without fractional seconds.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// SameLocalDay reports whether ts falls on the same calendar day as ref, in ref's location.
func SameLocalDay(ts, ref time.Time) bool {
	ty, tm, td := ts.In(ref.Location()).Date()
	ry, rm, rd := ref.Date()
	return ty == ry && tm == rm && td == rd
}

// Interval is a closed time range.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the interval, bounds included.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// StartOfWeek returns midnight of the first day of the week containing ref, in ref's location.
func StartOfWeek(ref time.Time, weekStart time.Weekday) time.Time {
	diff := (int(ref.Weekday()) - int(weekStart) + 7) % 7
	y, m, d := ref.Date()
	return time.Date(y, m, d-diff, 0, 0, 0, 0, ref.Location())
}

// WeekInterval returns the week containing ref, from the first instant of its first day
// to the last instant of its seventh day.
func WeekInterval(ref time.Time, weekStart time.Weekday) Interval {
	start := StartOfWeek(ref, weekStart)
	end := time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, start.Location()).Add(-time.Nanosecond)
	return Interval{Start: start, End: end}
}
