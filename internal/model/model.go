package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date with no time-of-day. Two Days are the same day
// exactly when their fields are equal.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// Date builds a Day, normalizing out-of-range values the way time.Date
// does (January 32 becomes February 1).
func Date(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the wall-clock date of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns midnight of d in loc. A nil loc means UTC.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Day) IsZero() bool { return d == Day{} }

// Weekday uses time.Weekday numbering: Sunday is 0.
func (d Day) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

func (d Day) AddDays(n int) Day {
	return Date(d.Year, d.Month, d.Day+n)
}

// AddMonths moves n months from the first of d's month. The result is
// always the first of a month, so the end of January never skips February.
func (d Day) AddMonths(n int) Day {
	return Date(d.Year, d.Month+time.Month(n), 1)
}

func (d Day) FirstOfMonth() Day {
	return Day{Year: d.Year, Month: d.Month, Day: 1}
}

func (d Day) LastOfMonth() Day {
	return Date(d.Year, d.Month+1, 0)
}

func (d Day) Equal(o Day) bool { return d == o }

func (d Day) SameMonth(o Day) bool {
	return d.Year == o.Year && d.Month == o.Month
}

func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Day) After(o Day) bool { return o.Before(d) }

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Event is a single calendar entry owned by the event store.
type Event struct {
	// ID is unique and strictly increasing in creation order.
	ID   int64 `json:"id"`
	Date Day   `json:"date"`

	Title       string `json:"title"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`

	// StartTime / EndTime are optional 24h "HH:MM" strings.
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// TimeLabel renders the event's time range for list views.
func (e Event) TimeLabel() string {
	switch {
	case e.StartTime != "" && e.EndTime != "":
		return e.StartTime + " - " + e.EndTime
	case e.StartTime != "":
		return "Starts at " + e.StartTime
	default:
		return ""
	}
}

// Countdown describes how long until the event starts, measured against
// now's wall clock. Events without a start time have no countdown.
func (e Event) Countdown(now time.Time) string {
	h, m, ok := ParseClock(e.StartTime)
	if !ok {
		return ""
	}
	start := time.Date(e.Date.Year, e.Date.Month, e.Date.Day, h, m, 0, 0, now.Location())

	diff := start.Sub(now)
	if diff < 0 {
		return "Event in progress or passed"
	}

	mins := int(diff / time.Minute)
	hrs := mins / 60
	days := hrs / 24

	switch {
	case days > 0:
		return fmt.Sprintf("Starts in %dd %dh", days, hrs%24)
	case hrs > 0:
		return fmt.Sprintf("Starts in %dh %dm", hrs, mins%60)
	case mins > 0:
		return fmt.Sprintf("Starts in %dm", mins)
	default:
		return "Starts soon!"
	}
}

// ParseClock parses a strict 24h "HH:MM" value.
func ParseClock(s string) (hour, minute int, ok bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, false
		}
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// Category tags events with a display color.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CategoryID derives a category identifier from its name: lowercased with
// all whitespace removed.
func CategoryID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}

// DefaultCategories is the set seeded into a fresh calendar.
func DefaultCategories() []Category {
	return []Category{
		{ID: "personal", Name: "Personal", Color: "#4CAF50"},
		{ID: "work", Name: "Work", Color: "#2196F3"},
		{ID: "urgent", Name: "Urgent", Color: "#F44336"},
	}
}

// EventForm is the uncommitted edit buffer behind the event dialog.
type EventForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`

	// EditingID is nil in create mode and the edited event's ID otherwise.
	EditingID *int64 `json:"editing_id"`
}
