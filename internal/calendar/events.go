package calendar

import (
	"strings"
	"time"

	"calboard/internal/model"
)

// EventStore is the in-memory list of events, kept in insertion order.
// It is not safe for concurrent use; State serializes access.
type EventStore struct {
	events []model.Event
	lastID int64
	now    func() time.Time
}

func NewEventStore(now func() time.Time) *EventStore {
	if now == nil {
		now = time.Now
	}
	return &EventStore{now: now}
}

// nextID is the creation time in milliseconds, bumped past the previous ID
// so IDs stay unique and increasing within the same millisecond.
func (s *EventStore) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// ValidateForm checks the fields shared by create and update. exists
// reports whether a category ID is known; nil skips the category check.
func ValidateForm(form model.EventForm, exists func(string) bool) error {
	if strings.TrimSpace(form.Title) == "" {
		return ErrTitleRequired
	}
	return validateTimes(form.StartTime, form.EndTime, form.CategoryID, exists)
}

func validateTimes(start, end, categoryID string, exists func(string) bool) error {
	if start != "" {
		if _, _, ok := model.ParseClock(start); !ok {
			return ErrInvalidTime
		}
	}
	if end != "" {
		if _, _, ok := model.ParseClock(end); !ok {
			return ErrInvalidTime
		}
	}
	// Zero-padded HH:MM compares correctly as strings.
	if start != "" && end != "" && start >= end {
		return ErrTimeOrder
	}
	if exists != nil && !exists(categoryID) {
		return ErrUnknownCategory
	}
	return nil
}

// Create validates form and appends a new event on date.
func (s *EventStore) Create(form model.EventForm, date *model.Day, exists func(string) bool) (model.Event, error) {
	if strings.TrimSpace(form.Title) == "" {
		return model.Event{}, ErrTitleRequired
	}
	if date == nil {
		return model.Event{}, ErrDateRequired
	}
	if err := ValidateForm(form, exists); err != nil {
		return model.Event{}, err
	}

	ev := model.Event{
		ID:   s.nextID(),
		Date: *date,
	}
	applyForm(&ev, form)
	s.events = append(s.events, ev)
	return ev, nil
}

// Update replaces the mutable fields of event id. The ID and date never
// change. An unknown id is not an error; found reports whether it matched.
func (s *EventStore) Update(id int64, form model.EventForm, exists func(string) bool) (ev model.Event, found bool, err error) {
	if err := ValidateForm(form, exists); err != nil {
		return model.Event{}, false, err
	}
	for i := range s.events {
		if s.events[i].ID == id {
			applyForm(&s.events[i], form)
			return s.events[i], true, nil
		}
	}
	return model.Event{}, false, nil
}

func applyForm(ev *model.Event, form model.EventForm) {
	ev.Title = strings.TrimSpace(form.Title)
	ev.Description = strings.TrimSpace(form.Description)
	ev.CategoryID = form.CategoryID
	ev.StartTime = form.StartTime
	ev.EndTime = form.EndTime
}

// Delete removes event id and reports whether it existed.
func (s *EventStore) Delete(id int64) bool {
	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return true
		}
	}
	return false
}

func (s *EventStore) Get(id int64) (model.Event, bool) {
	for _, ev := range s.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// EventsOn returns the events dated d in insertion order.
func (s *EventStore) EventsOn(d model.Day) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.Date == d {
			out = append(out, ev)
		}
	}
	return out
}

// Search filters EventsOn(scope) by a case-insensitive substring of the
// title or description. An empty term matches everything.
func (s *EventStore) Search(term string, scope model.Day) []model.Event {
	scoped := s.EventsOn(scope)
	if term == "" {
		return scoped
	}
	q := strings.ToLower(term)
	out := make([]model.Event, 0, len(scoped))
	for _, ev := range scoped {
		if strings.Contains(strings.ToLower(ev.Title), q) ||
			strings.Contains(strings.ToLower(ev.Description), q) {
			out = append(out, ev)
		}
	}
	return out
}

// UsesCategory reports whether any event references categoryID.
func (s *EventStore) UsesCategory(categoryID string) bool {
	for _, ev := range s.events {
		if ev.CategoryID == categoryID {
			return true
		}
	}
	return false
}

// All returns a copy of every event.
func (s *EventStore) All() []model.Event {
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *EventStore) Len() int { return len(s.events) }
