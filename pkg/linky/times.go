package linky

import (
	"fmt"
	"time"
	// the portal always speaks Paris time, don't depend on the host's zoneinfo
	_ "time/tzdata"
)

var parisLocation = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		panic(fmt.Errorf("failed to load paris location: %w", err))
	}
	return loc
}()

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// calendarDays returns the number of calendar days from start to end,
// ignoring the time of day and DST transitions.
func calendarDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}
