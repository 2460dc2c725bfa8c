package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/linkysync/linkysync/pkg/linky"
	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/reconcile"
	"github.com/linkysync/linkysync/pkg/types"
)

type backfill struct {
	f      Fetcher
	ds     *types.Dataset
	loc    *time.Location
	report Report
}

// merge merges s into g. A portal error is counted and swallowed.
func (b *backfill) merge(ctx context.Context, g types.Granularity, window string, s types.Series, err error) (types.Series, error) {
	if err != nil {
		if errors.Is(err, linky.ErrPortal) {
			log.Ctx(ctx).WarnContext(
				ctx,
				"skipping window",
				slog.String("granularity", g.String()),
				slog.String("window", window),
				slog.Any("error", err),
			)
			b.report.Skipped++
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch %s for %s: %w", g, window, err)
	}
	reconcile.MergeDataset(b.ds, g, s)
	b.report.Windows++
	return s, nil
}

func (b *backfill) run(ctx context.Context) error {
	log.Ctx(ctx).InfoContext(ctx, "getting all years")
	years, err := b.f.YearlyData(ctx)
	if err != nil {
		// without years there is nothing to walk
		return fmt.Errorf("failed to fetch years: %w", err)
	}
	if years == nil {
		log.Ctx(ctx).WarnContext(ctx, "portal has no yearly data")
		return nil
	}
	reconcile.MergeDataset(b.ds, types.Yearly, years)
	b.report.Windows++

	for _, year := range years.Keys() {
		if !years[year].Available() {
			continue
		}
		if err := b.year(ctx, year); err != nil {
			return err
		}
	}
	return nil
}

func (b *backfill) year(ctx context.Context, year string) error {
	y, err := strconv.Atoi(year)
	if err != nil {
		return fmt.Errorf("invalid year key %q: %w", year, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Ctx(ctx).InfoContext(ctx, "getting monthly data", slog.String("year", year))
	start := time.Date(y, time.January, 1, 0, 0, 0, 0, b.loc)
	months, err := b.f.MonthlyData(ctx, start, time.Date(y, time.December, 31, 0, 0, 0, 0, b.loc))
	months, err = b.merge(ctx, types.Monthly, year, months, err)
	if err != nil {
		return err
	}

	for _, month := range months.Keys() {
		if !months[month].Available() {
			continue
		}
		if err := b.month(ctx, month); err != nil {
			return err
		}
	}
	return nil
}

func (b *backfill) month(ctx context.Context, month string) error {
	start, err := time.ParseInLocation(types.Monthly.KeyLayout(), month, b.loc)
	if err != nil {
		return fmt.Errorf("invalid month key %q: %w", month, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Ctx(ctx).InfoContext(ctx, "getting daily data", slog.String("month", month))
	days, err := b.f.DailyData(ctx, start, start.AddDate(0, 1, -1))
	days, err = b.merge(ctx, types.Daily, month, days, err)
	if err != nil {
		return err
	}

	for _, day := range days.Keys() {
		if !days[day].Available() {
			continue
		}
		date, err := time.ParseInLocation(types.Daily.KeyLayout(), day, b.loc)
		if err != nil {
			return fmt.Errorf("invalid day key %q: %w", day, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Ctx(ctx).DebugContext(ctx, "getting hourly data", slog.String("day", day))
		hours, err := b.f.HourlyData(ctx, date)
		if _, err := b.merge(ctx, types.Hourly, day, hours, err); err != nil {
			return err
		}
	}
	return nil
}
