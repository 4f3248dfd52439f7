package calendar

import (
	"time"

	"calboard/internal/model"
)

// Cell is one day of the month grid as the presentation layer sees it.
type Cell struct {
	Date       model.Day `json:"date"`
	InMonth    bool      `json:"in_month"`
	Today      bool      `json:"today"`
	Selected   bool      `json:"selected"`
	EventCount int       `json:"event_count"`
	// Colors holds the category color of each event on the day, in order.
	Colors []string `json:"colors"`
}

// EventView is an event with its display helpers resolved.
type EventView struct {
	model.Event
	Color     string `json:"color"`
	TimeLabel string `json:"time_label"`
	Countdown string `json:"countdown"`
}

type EventDialog struct {
	Open bool            `json:"open"`
	Form model.EventForm `json:"form"`
}

type ConfirmPrompt struct {
	Visible bool   `json:"visible"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// Snapshot is a point-in-time copy of everything the UI displays.
type Snapshot struct {
	Anchor         model.Day        `json:"anchor"`
	Weekdays       []string         `json:"weekdays"`
	Grid           []Cell           `json:"grid"`
	SelectedDate   *model.Day       `json:"selected_date"`
	SidebarVisible bool             `json:"sidebar_visible"`
	SearchTerm     string           `json:"search_term"`
	Events         []EventView      `json:"events"`
	Categories     []model.Category `json:"categories"`
	EventDialog    EventDialog      `json:"event_dialog"`
	CategoryDialog bool             `json:"category_dialog"`
	Confirm        ConfirmPrompt    `json:"confirm"`
	Loading        bool             `json:"loading"`
	Error          *string          `json:"error"`
}

var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	today := model.DayOf(now)

	snap := Snapshot{
		Anchor:         s.anchor,
		Weekdays:       append([]string(nil), weekdayLabels...),
		Grid:           make([]Cell, 0, len(s.grid)),
		SidebarVisible: s.sidebar,
		SearchTerm:     s.searchTerm,
		Categories:     s.categories.List(),
		EventDialog: EventDialog{
			Open: s.eventDialog,
			Form: s.form,
		},
		CategoryDialog: s.categoryDialog,
		Confirm: ConfirmPrompt{
			Visible: s.confirm.Visible(),
			Message: s.confirm.Message(),
			Action:  s.confirm.Pending().Kind.String(),
		},
		Loading: s.loading,
	}
	if s.form.EditingID != nil {
		id := *s.form.EditingID
		snap.EventDialog.Form.EditingID = &id
	}
	if s.selected != nil {
		sel := *s.selected
		snap.SelectedDate = &sel
	}
	if s.errMsg != nil {
		msg := *s.errMsg
		snap.Error = &msg
	}

	for _, d := range s.grid {
		dayEvents := s.events.EventsOn(d)
		colors := make([]string, 0, len(dayEvents))
		for _, ev := range dayEvents {
			colors = append(colors, s.categories.ColorFor(ev.CategoryID))
		}
		snap.Grid = append(snap.Grid, Cell{
			Date:       d,
			InMonth:    d.SameMonth(s.anchor),
			Today:      d == today,
			Selected:   s.selected != nil && d == *s.selected,
			EventCount: len(dayEvents),
			Colors:     colors,
		})
	}

	snap.Events = s.viewsLocked(s.filteredLocked(), now)
	return snap
}

func (s *State) viewsLocked(events []model.Event, now time.Time) []EventView {
	out := make([]EventView, 0, len(events))
	for _, ev := range events {
		out = append(out, EventView{
			Event:     ev,
			Color:     s.categories.ColorFor(ev.CategoryID),
			TimeLabel: ev.TimeLabel(),
			Countdown: ev.Countdown(now),
		})
	}
	return out
}
