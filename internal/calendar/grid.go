package calendar

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "calboard/internal/log"
	"calboard/internal/model"
)

// GridSize is the number of cells in a month view: six full weeks.
const GridSize = 42

// GridStart returns the Sunday on or before the first of ref's month.
func GridStart(ref model.Day) model.Day {
	first := ref.FirstOfMonth()
	return first.AddDays(-int(first.Weekday()))
}

// GenerateGrid returns the 42 days shown for the month containing ref:
// trailing days of the previous month, the whole month, then leading days
// of the next month. The first cell is always a Sunday.
func GenerateGrid(ref model.Day) []model.Day {
	start := GridStart(ref)

	// Dates are expanded in UTC so DST transitions never shift a day.
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   GridSize,
		Dtstart: start.Time(time.UTC),
	})
	if err != nil {
		appLog.Error("failed to build grid rule", err, "start", start)
		return nil
	}

	days := make([]model.Day, 0, GridSize)
	for _, t := range r.All() {
		days = append(days, model.DayOf(t))
	}
	return days
}
