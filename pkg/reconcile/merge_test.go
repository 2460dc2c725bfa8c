package reconcile

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/linkysync/linkysync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	a := types.Series{
		"2020-01-01": types.NewValue(5),
		"2020-01-03": types.NewValue(1),
	}
	b := types.Series{
		"2020-01-01": types.Null(),
		"2020-01-02": types.NewValue(3.2),
	}

	t.Run("NilPersisted", func(t *testing.T) {
		assert.Equal(t, b, Merge(nil, b))
		assert.Nil(t, Merge(nil, nil))
	})

	t.Run("NilIncoming", func(t *testing.T) {
		assert.Equal(t, a, Merge(a, nil))
	})

	t.Run("IncomingWins", func(t *testing.T) {
		m := Merge(a, b)
		assert.Equal(t, []string{"2020-01-01", "2020-01-02", "2020-01-03"}, m.Keys())
		assert.False(t, m["2020-01-01"].Available())
		// a isn't modified
		assert.True(t, a["2020-01-01"].Available())
		assert.Len(t, a, 2)
	})

	t.Run("Idempotent", func(t *testing.T) {
		once := Merge(a, b)
		assert.Equal(t, once, Merge(once, b))
	})
}

func TestMergeDataset(t *testing.T) {
	ds := types.Dataset{Days: types.Series{"2020-01-01": types.NewValue(5)}}
	MergeDataset(&ds, types.Daily, types.Series{
		"2020-01-01": types.Null(),
		"2020-01-02": types.NewValue(3.2),
	})

	b, err := json.Marshal(ds.Days)
	require.NoError(t, err)
	assert.Equal(t, `{"2020-01-01":null,"2020-01-02":3.2}`, string(b))

	MergeDataset(&ds, types.Yearly, types.Series{"2020": types.NewValue(3000)})
	assert.Len(t, ds.Years, 1)
	assert.Nil(t, ds.Hours)
}

func TestIncremental(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	hours := func(day string, v types.Value) types.Series {
		s := make(types.Series)
		for i := 0; i < 48; i++ {
			s[day+" "+time.Date(0, 1, 1, i/2, (i%2)*30, 0, 0, time.UTC).Format("15:04")] = v
		}
		return s
	}

	fetched := types.Dataset{
		Hours: hours("2020-03-14", types.NewValue(0.5)),
		Days: types.Series{
			"2020-03-13": types.NewValue(11),
			"2020-03-14": types.NewValue(12),
		},
		Months: types.Series{
			"2020-01": types.NewValue(300),
			"2020-02": types.NewValue(310),
			"2020-03": types.NewValue(150),
		},
		Years: types.Series{
			"2019": types.NewValue(3600),
			"2020": types.NewValue(760),
		},
	}

	t.Run("MidMonth", func(t *testing.T) {
		previous := types.Dataset{
			Days:   types.Series{"2020-03-13": types.NewValue(10)},
			Months: types.Series{"2020-01": types.NewValue(1), "2020-03": types.NewValue(2)},
			Years:  types.Series{"2019": types.NewValue(1)},
		}
		now := time.Date(2020, time.March, 15, 6, 30, 0, 0, paris)
		out := Incremental(previous, fetched, now)

		assert.Equal(t, 150.0, kwh(out.Months["2020-03"]))
		// other months are left alone
		assert.Equal(t, 1.0, kwh(out.Months["2020-01"]))
		assert.NotContains(t, out.Months, "2020-02")

		assert.Equal(t, 760.0, kwh(out.Years["2020"]))
		assert.Equal(t, 1.0, kwh(out.Years["2019"]))

		assert.Len(t, out.Hours, 48)
		assert.Equal(t, 0.5, kwh(out.Hours["2020-03-14 23:30"]))

		assert.Equal(t, 12.0, kwh(out.Days["2020-03-14"]))
		assert.Equal(t, 10.0, kwh(out.Days["2020-03-13"]))

		assert.Equal(t, "15/03/2020 06:30:00", out.Updated)

		// previous isn't modified
		assert.Equal(t, 2.0, kwh(previous.Months["2020-03"]))
		assert.Nil(t, previous.Hours)
	})

	t.Run("FirstOfMonth", func(t *testing.T) {
		fetched := fetched
		fetched.Months = types.Series{"2020-02": types.NewValue(310), "2020-03": types.Null()}
		previous := types.Dataset{Months: types.Series{"2020-02": types.NewValue(100), "2020-03": types.NewValue(5)}}
		out := Incremental(previous, fetched, time.Date(2020, time.March, 1, 6, 0, 0, 0, paris))
		assert.Equal(t, 310.0, kwh(out.Months["2020-02"]))
		// an unavailable current month keeps the stored value
		assert.Equal(t, 5.0, kwh(out.Months["2020-03"]))
	})

	t.Run("NewYear", func(t *testing.T) {
		fetched := types.Dataset{
			Months: types.Series{"2019-12": types.NewValue(400)},
			Years:  types.Series{"2019": types.NewValue(3650), "2020": types.Null()},
		}
		previous := types.Dataset{Years: types.Series{"2019": types.NewValue(3300)}}
		out := Incremental(previous, fetched, time.Date(2020, time.January, 1, 6, 0, 0, 0, paris))
		assert.Equal(t, 3650.0, kwh(out.Years["2019"]))
		assert.NotContains(t, out.Years, "2020")
		assert.Equal(t, 400.0, kwh(out.Months["2019-12"]))
	})

	t.Run("YesterdayHoursAlreadyStored", func(t *testing.T) {
		previous := types.Dataset{Hours: hours("2020-03-14", types.NewValue(9))}
		out := Incremental(previous, fetched, time.Date(2020, time.March, 15, 6, 0, 0, 0, paris))
		assert.Equal(t, 9.0, kwh(out.Hours["2020-03-14 12:00"]))
	})

	t.Run("YesterdayHoursUnavailable", func(t *testing.T) {
		fetched := fetched
		fetched.Hours = hours("2020-03-14", types.Null())
		out := Incremental(types.Dataset{}, fetched, time.Date(2020, time.March, 15, 6, 0, 0, 0, paris))
		assert.Empty(t, out.Hours)
	})

	t.Run("YesterdayDayAlreadyStored", func(t *testing.T) {
		previous := types.Dataset{Days: types.Series{"2020-03-14": types.NewValue(1)}}
		out := Incremental(previous, fetched, time.Date(2020, time.March, 15, 6, 0, 0, 0, paris))
		assert.Equal(t, 1.0, kwh(out.Days["2020-03-14"]))
		assert.Len(t, out.Days, 1)
	})
}

func kwh(v types.Value) float64 {
	f, _ := v.KWH()
	return f
}
