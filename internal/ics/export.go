package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"calboard/internal/model"
)

const ProductID = "-//calboard//calboard//EN"

// uidNamespace scopes the name-based UUIDs used as VEVENT UIDs, so an
// event keeps the same UID across exports.
var uidNamespace = uuid.MustParse("5b0c7a2e-3f7d-4a59-9c1e-6f1c2d8e9a40")

func uidFor(id int64) string {
	return uuid.NewSHA1(uidNamespace, []byte(strconv.FormatInt(id, 10))).String() + "@calboard"
}

// Export renders events as a VCALENDAR. Events with a start time become
// floating local date-times; events without one are all-day. Each event
// carries its category's name and color.
func Export(name string, events []model.Event, categories []model.Category, stamp time.Time) string {
	byID := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		ve := cal.AddEvent(uidFor(ev.ID))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}

		start, hasStart := clockOn(ev.Date, ev.StartTime)
		if hasStart {
			ve.SetProperty(ical.ComponentPropertyDtStart, start.Format("20060102T150405"))
			if end, ok := clockOn(ev.Date, ev.EndTime); ok {
				ve.SetProperty(ical.ComponentPropertyDtEnd, end.Format("20060102T150405"))
			}
		} else {
			day := ev.Date.Time(time.UTC)
			ve.SetProperty(ical.ComponentPropertyDtStart, day.Format("20060102"), ical.WithValue("DATE"))
			ve.SetProperty(ical.ComponentPropertyDtEnd, day.AddDate(0, 0, 1).Format("20060102"), ical.WithValue("DATE"))
		}

		if cat, ok := byID[ev.CategoryID]; ok {
			ve.SetProperty(ical.ComponentPropertyCategories, cat.Name)
			if cat.Color != "" {
				ve.SetProperty(ical.ComponentPropertyColor, cat.Color)
			}
		}
	}

	return cal.Serialize()
}

func clockOn(d model.Day, hhmm string) (time.Time, bool) {
	h, m, ok := model.ParseClock(hhmm)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year, d.Month, d.Day, h, m, 0, 0, time.UTC), true
}
