// Package reconcile merges freshly fetched series into a persisted dataset.
package reconcile

import (
	"strings"
	"time"

	"github.com/linkysync/linkysync/pkg/types"
)

// UpdatedLayout is the layout of Dataset.Updated.
const UpdatedLayout = "02/01/2006 15:04:05"

// Merge returns the union of persisted and incoming. On a key conflict the
// incoming value wins. A nil persisted series is replaced by incoming as is,
// a nil incoming series leaves persisted untouched.
//
// persisted is never modified.
func Merge(persisted, incoming types.Series) types.Series {
	if persisted == nil {
		return incoming
	}
	if incoming == nil {
		return persisted
	}
	out := persisted.Clone()
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// MergeDataset merges incoming into the series of granularity g of ds.
func MergeDataset(ds *types.Dataset, g types.Granularity, incoming types.Series) {
	ds.SetSeries(g, Merge(ds.Series(g), incoming))
}

// Incremental applies the narrow periodic update to previous using a
// fetched dataset covering the recent windows and returns the result. Only
// the following entries are touched:
//   - the current month and year, when the fetched reading is available
//   - the previous month on the 1st, and the previous year on January 1st
//   - yesterday's half-hour buckets, when none are stored yet and the
//     fetched 00:00 bucket is available
//   - yesterday's daily reading, when it isn't stored yet
//
// Updated is always set to now.
func Incremental(previous, fetched types.Dataset, now time.Time) types.Dataset {
	out := types.Dataset{
		Hours:  previous.Hours.Clone(),
		Days:   previous.Days.Clone(),
		Months: previous.Months.Clone(),
		Years:  previous.Years.Clone(),
	}

	thisMonth := now.Format(types.Monthly.KeyLayout())
	if v, ok := fetched.Months[thisMonth]; ok && v.Available() {
		set(&out, types.Monthly, thisMonth, v)
	}
	if now.Day() == 1 {
		prev := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location()).Format(types.Monthly.KeyLayout())
		if v, ok := fetched.Months[prev]; ok {
			set(&out, types.Monthly, prev, v)
		}
	}

	thisYear := now.Format(types.Yearly.KeyLayout())
	if v, ok := fetched.Years[thisYear]; ok && v.Available() {
		set(&out, types.Yearly, thisYear, v)
	}
	if now.Day() == 1 && now.Month() == time.January {
		prev := now.AddDate(-1, 0, 0).Format(types.Yearly.KeyLayout())
		if v, ok := fetched.Years[prev]; ok {
			set(&out, types.Yearly, prev, v)
		}
	}

	yesterday := now.AddDate(0, 0, -1).Format(types.Daily.KeyLayout())
	midnight := yesterday + " 00:00"
	if _, ok := out.Hours[midnight]; !ok {
		if v, ok := fetched.Hours[midnight]; ok && v.Available() {
			for k, v := range fetched.Hours {
				if strings.HasPrefix(k, yesterday+" ") {
					set(&out, types.Hourly, k, v)
				}
			}
		}
	}
	if _, ok := out.Days[yesterday]; !ok {
		if v, ok := fetched.Days[yesterday]; ok {
			set(&out, types.Daily, yesterday, v)
		}
	}

	out.Updated = now.Format(UpdatedLayout)
	return out
}

func set(ds *types.Dataset, g types.Granularity, key string, v types.Value) {
	s := ds.Series(g)
	if s == nil {
		s = make(types.Series)
		ds.SetSeries(g, s)
	}
	s[key] = v
}
