package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calboard/internal/log"
	"calboard/internal/model"
)

// ImportedEvent is a VEVENT reduced to what the board stores: a day, a
// title, and optional wall-clock start/end times on that day.
type ImportedEvent struct {
	UID         string
	Day         model.Day
	Title       string
	Description string
	StartTime   string
	EndTime     string
}

// Form converts the event into a dialog buffer tagged with categoryID.
func (e ImportedEvent) Form(categoryID string) model.EventForm {
	return model.EventForm{
		Title:       e.Title,
		Description: e.Description,
		CategoryID:  categoryID,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
	}
}

// Parse reads an ICS payload. Timed events are converted into loc's wall
// clock (nil means time.Local). RRULEs are not expanded: only the DTSTART
// instance is imported. An end time is kept only when the event ends later
// on the same day.
func Parse(src Source, body []byte, loc *time.Location) ([]ImportedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ImportedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp, loc)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ImportedEvent, error) {
	var out ImportedEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = strings.TrimSpace(p.Value)
	}
	if out.Title == "" {
		return out, fmt.Errorf("vevent %q: missing SUMMARY", out.UID)
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, fmt.Errorf("vevent %q: missing DTSTART", out.UID)
	}
	start, allDay, err := propertyTime(startProp, loc)
	if err != nil {
		return out, fmt.Errorf("vevent %q: DTSTART: %w", out.UID, err)
	}
	out.Day = model.DayOf(start)
	if allDay {
		return out, nil
	}
	out.StartTime = start.Format("15:04")

	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		end, _, err := propertyTime(endProp, loc)
		if err == nil && model.DayOf(end) == out.Day {
			if hhmm := end.Format("15:04"); hhmm > out.StartTime {
				out.EndTime = hhmm
			}
		}
	}
	return out, nil
}

// propertyTime decodes a DTSTART/DTEND value, honoring VALUE=DATE and TZID,
// and returns it in loc. Floating times are read as loc's wall clock.
func propertyTime(p *ical.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	v := strings.TrimSpace(p.Value)
	if v == "" {
		return time.Time{}, false, errors.New("empty time value")
	}

	var valueType, tzid string
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 {
			valueType = vs[0]
		}
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
			tzid = tzs[0]
		}
	}

	if strings.EqualFold(valueType, "DATE") || !strings.Contains(v, "T") {
		t, err := time.ParseInLocation("20060102", v, loc)
		return t, true, err
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t.In(loc), false, err
	}

	src := loc
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			src = l
		} else {
			appLog.Warn("unknown TZID; reading as local wall clock", "tzid", tzid)
		}
	}
	t, err := time.ParseInLocation("20060102T150405", v, src)
	return t.In(loc), false, err
}
