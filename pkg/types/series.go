package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Granularity is the resolution of a consumption series.
type Granularity int

const (
	Hourly Granularity = iota
	Daily
	Monthly
	Yearly
)

// Granularities lists every granularity from finest to coarsest.
var Granularities = []Granularity{Hourly, Daily, Monthly, Yearly}

// String returns the dataset name used for the granularity in the persisted
// document.
func (g Granularity) String() string {
	switch g {
	case Hourly:
		return "hours"
	case Daily:
		return "days"
	case Monthly:
		return "months"
	case Yearly:
		return "years"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// KeyLayout returns the time layout of the series keys for the granularity.
// Every layout sorts lexicographically in chronological order.
func (g Granularity) KeyLayout() string {
	switch g {
	case Hourly:
		return "2006-01-02 15:04"
	case Daily:
		return "2006-01-02"
	case Monthly:
		return "2006-01"
	case Yearly:
		return "2006"
	default:
		return ""
	}
}

// ParseGranularity parses a dataset name such as "days".
func ParseGranularity(s string) (Granularity, error) {
	for _, g := range Granularities {
		if g.String() == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown granularity: %s", s)
}

// UnitSuffix is appended to values rendered with units.
const UnitSuffix = "kWh"

// Value is a single consumption reading in kWh. The zero Value is
// unavailable and encodes as JSON null.
type Value struct {
	kwh       float64
	available bool
	withUnit  bool
}

// NewValue returns an available reading.
func NewValue(kwh float64) Value {
	return Value{kwh: kwh, available: true}
}

// NewUnitValue returns an available reading that encodes as a string with
// the kWh suffix.
func NewUnitValue(kwh float64) Value {
	return Value{kwh: kwh, available: true, withUnit: true}
}

// Null returns an unavailable reading.
func Null() Value {
	return Value{}
}

// Available reports whether the portal had a reading for the slot.
func (v Value) Available() bool {
	return v.available
}

// KWH returns the reading and whether it is available.
func (v Value) KWH() (float64, bool) {
	return v.kwh, v.available
}

// String renders the value the way it is encoded, without quotes.
func (v Value) String() string {
	if !v.available {
		return "null"
	}
	s := strconv.FormatFloat(v.kwh, 'f', -1, 64)
	if v.withUnit {
		s += UnitSuffix
	}
	return s
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.available {
		return []byte("null"), nil
	}
	if v.withUnit {
		return json.Marshal(v.String())
	}
	return []byte(strconv.FormatFloat(v.kwh, 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts null, a number or a
// string with an optional kWh suffix.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		withUnit := strings.HasSuffix(s, UnitSuffix)
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, UnitSuffix)), 64)
		if err != nil {
			return fmt.Errorf("invalid reading %q: %w", s, err)
		}
		*v = Value{kwh: f, available: true, withUnit: withUnit}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("invalid reading %s: %w", b, err)
	}
	*v = Value{kwh: f, available: true}
	return nil
}

// Series maps a date key, formatted with the granularity's KeyLayout, to a
// reading. encoding/json writes map keys in ascending order so an encoded
// Series is always sorted.
type Series map[string]Value

// Keys returns the keys sorted ascending.
func (s Series) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy. A nil Series stays nil.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	c := make(Series, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Range returns the entries whose key is within [start, end]. An empty bound
// is open.
func (s Series) Range(start, end string) Series {
	out := make(Series)
	for k, v := range s {
		if start != "" && k < start {
			continue
		}
		if end != "" && k > end {
			continue
		}
		out[k] = v
	}
	return out
}

// Dataset is the persisted document: one series per granularity. Absent
// granularities are nil and encode as null.
type Dataset struct {
	Hours  Series `json:"hours"`
	Days   Series `json:"days"`
	Months Series `json:"months"`
	Years  Series `json:"years"`

	// Updated is the local time of the last periodic run.
	Updated string `json:"update,omitempty"`
}

// Series returns the series stored for g.
func (d *Dataset) Series(g Granularity) Series {
	switch g {
	case Hourly:
		return d.Hours
	case Daily:
		return d.Days
	case Monthly:
		return d.Months
	case Yearly:
		return d.Years
	default:
		return nil
	}
}

// SetSeries replaces the series stored for g.
func (d *Dataset) SetSeries(g Granularity, s Series) {
	switch g {
	case Hourly:
		d.Hours = s
	case Daily:
		d.Days = s
	case Monthly:
		d.Months = s
	case Yearly:
		d.Years = s
	}
}

// Credentials are the portal login credentials.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"-"`
}
