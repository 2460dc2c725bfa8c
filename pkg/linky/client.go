package linky

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/types"
)

// Client retrieves normalized consumption series through an authenticated
// Session. It is not meant to be used concurrently: the Session serializes
// every request anyway.
type Client struct {
	cfg        Config
	session    *Session
	normalizer Normalizer
}

// NewClient returns a Client using session.
func NewClient(cfg Config, session *Session) *Client {
	return &Client{
		cfg:     cfg,
		session: session,
		normalizer: Normalizer{
			Units:    cfg.Units,
			Location: cfg.Location,
		},
	}
}

// HourlyData returns the 48 half-hour readings of date. The portal only
// answers correctly when asked for two days before to one day after.
func (c *Client) HourlyData(ctx context.Context, date time.Time) (types.Series, error) {
	date = date.In(c.cfg.Location)
	raw, err := c.FetchWindow(ctx, types.Hourly, Window{
		Start: date.AddDate(0, 0, -2),
		End:   date.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}
	if !raw.HasData {
		return nil, nil
	}
	return c.normalizer.Normalize(raw.Data, types.Hourly, date), nil
}

// DailyData returns one reading per day from start. The range can't exceed
// 31 days.
func (c *Client) DailyData(ctx context.Context, start, end time.Time) (types.Series, error) {
	raw, err := c.FetchWindow(ctx, types.Daily, Window{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	if !raw.HasData {
		return nil, nil
	}
	return c.normalizer.Normalize(raw.Data, types.Daily, start), nil
}

// MonthlyData returns one reading per month from the month of start.
func (c *Client) MonthlyData(ctx context.Context, start, end time.Time) (types.Series, error) {
	raw, err := c.FetchWindow(ctx, types.Monthly, Window{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	if !raw.HasData {
		return nil, nil
	}
	return c.normalizer.Normalize(raw.Data, types.Monthly, start), nil
}

// YearlyData returns every year of history the portal has, ending with the
// current year.
func (c *Client) YearlyData(ctx context.Context) (types.Series, error) {
	return c.yearlyData(ctx, c.normalizer)
}

func (c *Client) yearlyData(ctx context.Context, n Normalizer) (types.Series, error) {
	raw, err := c.FetchWindow(ctx, types.Yearly, Window{})
	if err != nil {
		return nil, err
	}
	if !raw.HasData {
		return nil, nil
	}
	s := n.Normalize(raw.Data, types.Yearly, time.Time{})
	log.Ctx(ctx).DebugContext(ctx, "got linky yearly data", slog.Int("years", len(s)))
	return s, nil
}

// All returns the recent windows of every granularity relative to now:
// yesterday's half hours, the 30 days before yesterday, the months since the
// same month last year and every year, the last one being the year of now.
// Portal data is only available up to yesterday.
//
// A portal error on one granularity leaves its series nil and the others are
// still fetched. Any other error is returned immediately.
func (c *Client) All(ctx context.Context, now time.Time) (types.Dataset, error) {
	yesterday := truncateDay(now.In(c.cfg.Location)).AddDate(0, 0, -1)
	yearAgo := yesterday.AddDate(-1, 0, 0)
	yearAgo = time.Date(yearAgo.Year(), yearAgo.Month(), 1, 0, 0, 0, 0, yearAgo.Location())

	// the current year is the one of now, not of the wall clock
	yearly := c.normalizer
	yearly.Now = func() time.Time { return now }

	var ds types.Dataset
	fetches := []struct {
		g     types.Granularity
		fetch func() (types.Series, error)
	}{
		{types.Hourly, func() (types.Series, error) { return c.HourlyData(ctx, yesterday) }},
		{types.Daily, func() (types.Series, error) { return c.DailyData(ctx, yesterday.AddDate(0, 0, -30), yesterday) }},
		{types.Monthly, func() (types.Series, error) { return c.MonthlyData(ctx, yearAgo, yesterday) }},
		{types.Yearly, func() (types.Series, error) { return c.yearlyData(ctx, yearly) }},
	}
	for _, f := range fetches {
		s, err := f.fetch()
		if err != nil {
			if errors.Is(err, ErrPortal) {
				log.Ctx(ctx).WarnContext(ctx, "skipping linky granularity", slog.String("granularity", f.g.String()), slog.Any("error", err))
				continue
			}
			return types.Dataset{}, err
		}
		ds.SetSeries(f.g, s)
	}
	return ds, nil
}
