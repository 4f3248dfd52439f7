package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDayArithmetic(t *testing.T) {
	jan31 := Date(2025, time.January, 31)

	if got := jan31.AddDays(1); got != (Day{2025, time.February, 1}) {
		t.Errorf("AddDays(1) = %s", got)
	}
	if got := jan31.AddMonths(1); got != (Day{2025, time.February, 1}) {
		t.Errorf("AddMonths(1) from Jan 31 = %s, want 2025-02-01", got)
	}
	if got := jan31.AddMonths(-1); got != (Day{2024, time.December, 1}) {
		t.Errorf("AddMonths(-1) = %s", got)
	}
	if got := Date(2024, time.February, 10).LastOfMonth(); got.Day != 29 {
		t.Errorf("leap February should end on the 29th, got %s", got)
	}
	if got := Date(2025, time.March, 1).AddDays(-1); got != (Day{2025, time.February, 28}) {
		t.Errorf("AddDays(-1) = %s", got)
	}
	if !Date(2024, time.December, 31).Before(Date(2025, time.January, 1)) {
		t.Error("Dec 31 should be before Jan 1 of the next year")
	}
	if Date(2025, time.June, 9).Weekday() != time.Monday {
		t.Errorf("2025-06-09 is a Monday, got %s", Date(2025, time.June, 9).Weekday())
	}
}

func TestDayOfIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2025, 3, 4, 0, 5, 0, 0, time.Local)
	night := time.Date(2025, 3, 4, 23, 55, 0, 0, time.Local)
	if DayOf(morning) != DayOf(night) {
		t.Errorf("DayOf should match on calendar date: %s vs %s", DayOf(morning), DayOf(night))
	}
}

func TestDayJSON(t *testing.T) {
	type wrapper struct {
		D Day `json:"d"`
	}
	b, err := json.Marshal(wrapper{D: Date(2025, time.July, 4)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2025-07-04"}` {
		t.Errorf("unexpected JSON %s", b)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"d":"2026-10-18"}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.D != Date(2026, time.October, 18) {
		t.Errorf("unmarshalled %s", w.D)
	}
	if err := json.Unmarshal([]byte(`{"d":"18.10.2026"}`), &w); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestTimeLabel(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Event{StartTime: "09:00", EndTime: "10:30"}, "09:00 - 10:30"},
		{Event{StartTime: "09:00"}, "Starts at 09:00"},
		{Event{EndTime: "10:00"}, ""},
		{Event{}, ""},
	}
	for _, c := range cases {
		if got := c.ev.TimeLabel(); got != c.want {
			t.Errorf("TimeLabel(%+v) = %q, want %q", c.ev, got, c.want)
		}
	}
}

func TestCountdown(t *testing.T) {
	now := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	ev := func(d Day, start string) Event {
		return Event{Date: d, StartTime: start}
	}
	today := DayOf(now)

	cases := []struct {
		name string
		ev   Event
		want string
	}{
		{"no start", ev(today, ""), ""},
		{"passed", ev(today, "07:59"), "Event in progress or passed"},
		{"soon", ev(today, "08:00"), "Starts soon!"},
		{"minutes", ev(today, "08:45"), "Starts in 45m"},
		{"hours", ev(today, "11:15"), "Starts in 3h 15m"},
		{"days", ev(today.AddDays(2), "10:00"), "Starts in 2d 2h"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.ev.Countdown(now); got != c.want {
				t.Errorf("Countdown = %q, want %q", got, c.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	valid := []string{"00:00", "09:30", "23:59"}
	for _, s := range valid {
		if _, _, ok := ParseClock(s); !ok {
			t.Errorf("ParseClock(%q) should succeed", s)
		}
	}
	invalid := []string{"", "9:30", "24:00", "12:60", "+1:00", "12-30", "12:3a"}
	for _, s := range invalid {
		if _, _, ok := ParseClock(s); ok {
			t.Errorf("ParseClock(%q) should fail", s)
		}
	}
}

func TestCategoryID(t *testing.T) {
	cases := map[string]string{
		"Personal":      "personal",
		"Side Project":  "sideproject",
		" Deep\tWork  ": "deepwork",
	}
	for in, want := range cases {
		if got := CategoryID(in); got != want {
			t.Errorf("CategoryID(%q) = %q, want %q", in, got, want)
		}
	}
}
