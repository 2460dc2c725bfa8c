package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGranularity(t *testing.T) {
	for _, g := range Granularities {
		parsed, err := ParseGranularity(g.String())
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
		assert.NotEmpty(t, g.KeyLayout())
	}

	_, err := ParseGranularity("weeks")
	assert.ErrorContains(t, err, "unknown granularity")
}

func TestValueJSON(t *testing.T) {
	t.Run("Encode", func(t *testing.T) {
		b, err := json.Marshal(Series{
			"2020-01-02": NewValue(3.2),
			"2020-01-01": Null(),
			"2020-01-03": NewUnitValue(5),
		})
		require.NoError(t, err)
		assert.Equal(t, `{"2020-01-01":null,"2020-01-02":3.2,"2020-01-03":"5kWh"}`, string(b))
	})

	t.Run("Decode", func(t *testing.T) {
		var s Series
		require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":1.5,"c":"2.25kWh"}`), &s))

		assert.False(t, s["a"].Available())
		kwh, ok := s["b"].KWH()
		assert.True(t, ok)
		assert.Equal(t, 1.5, kwh)
		kwh, ok = s["c"].KWH()
		assert.True(t, ok)
		assert.Equal(t, 2.25, kwh)
		assert.Equal(t, "2.25kWh", s["c"].String())
	})

	t.Run("DecodeInvalid", func(t *testing.T) {
		var v Value
		assert.Error(t, json.Unmarshal([]byte(`"lots"`), &v))
		assert.Error(t, json.Unmarshal([]byte(`true`), &v))
	})
}

func TestSeries(t *testing.T) {
	s := Series{
		"2020-03": NewValue(3),
		"2020-01": NewValue(1),
		"2020-02": Null(),
	}
	assert.Equal(t, []string{"2020-01", "2020-02", "2020-03"}, s.Keys())
	assert.Equal(t, Series{"2020-02": Null(), "2020-03": NewValue(3)}, s.Range("2020-02", ""))
	assert.Equal(t, Series{"2020-01": NewValue(1)}, s.Range("", "2020-01"))

	c := s.Clone()
	c["2020-04"] = NewValue(4)
	assert.Len(t, s, 3)
	assert.Nil(t, Series(nil).Clone())
}

func TestDataset(t *testing.T) {
	var d Dataset
	for _, g := range Granularities {
		assert.Nil(t, d.Series(g))
		d.SetSeries(g, Series{"k": NewValue(float64(g))})
	}
	assert.Equal(t, NewValue(2), d.Months["k"])

	b, err := json.Marshal(Dataset{Days: Series{"2020-01-01": NewValue(5)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hours":null,"days":{"2020-01-01":5},"months":null,"years":null}`, string(b))
}
