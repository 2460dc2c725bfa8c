package linky

import (
	"fmt"
	"strconv"
	"time"

	"github.com/linkysync/linkysync/pkg/types"
)

// Normalizer turns raw portal data into date-keyed series.
type Normalizer struct {
	// Units renders readings as strings with the kWh suffix.
	Units    bool
	Location *time.Location
	// Now defaults to time.Now. Yearly series are anchored on it.
	Now func() time.Time
}

func (n Normalizer) now() time.Time {
	loc := n.Location
	if loc == nil {
		loc = parisLocation
	}
	if n.Now != nil {
		return n.Now().In(loc)
	}
	return time.Now().In(loc)
}

// Value converts a raw reading. Missing and negative readings, which the
// portal uses for "no measure", are null.
func (n Normalizer) Value(v *float64) types.Value {
	if v == nil || *v < 0 {
		return types.Null()
	}
	if n.Units {
		return types.NewUnitValue(*v)
	}
	return types.NewValue(*v)
}

// Normalize maps data, in order, to keys stepping from anchor by one unit of
// g. Hourly data is keyed backward from 23:30 of the anchor's day using the
// last 48 entries; yearly data ignores anchor and ends at the current year.
func (n Normalizer) Normalize(data []Datapoint, g types.Granularity, anchor time.Time) types.Series {
	if n.Location != nil {
		anchor = anchor.In(n.Location)
	}
	out := make(types.Series, len(data))

	switch g {
	case types.Hourly:
		day := anchor.Format(types.Daily.KeyLayout())
		minutes := 23*60 + 30
		for i := len(data) - 1; i >= len(data)-hourlySlots; i-- {
			v := types.Null()
			if i >= 0 {
				v = n.Value(data[i].Value)
			}
			out[fmt.Sprintf("%s %02d:%02d", day, minutes/60, minutes%60)] = v
			minutes -= 30
		}
	case types.Daily:
		d := truncateDay(anchor)
		for i, p := range data {
			out[d.AddDate(0, 0, i).Format(g.KeyLayout())] = n.Value(p.Value)
		}
	case types.Monthly:
		m := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
		for i, p := range data {
			out[m.AddDate(0, i, 0).Format(g.KeyLayout())] = n.Value(p.Value)
		}
	case types.Yearly:
		first := n.now().Year() - (len(data) - 1)
		for i, p := range data {
			out[strconv.Itoa(first+i)] = n.Value(p.Value)
		}
	}
	return out
}
