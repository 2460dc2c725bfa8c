// Package updater runs the jobs that keep the persisted dataset in sync with
// the portal: a full historical backfill and the periodic incremental update.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/linkysync/linkysync/pkg/linky"
	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/reconcile"
	"github.com/linkysync/linkysync/pkg/storage"
	"github.com/linkysync/linkysync/pkg/types"
)

// Fetcher retrieves normalized series from the portal. It is implemented by
// *linky.Client.
type Fetcher interface {
	HourlyData(ctx context.Context, date time.Time) (types.Series, error)
	DailyData(ctx context.Context, start, end time.Time) (types.Series, error)
	MonthlyData(ctx context.Context, start, end time.Time) (types.Series, error)
	YearlyData(ctx context.Context) (types.Series, error)
	All(ctx context.Context, now time.Time) (types.Dataset, error)
}

// Connector opens a new authenticated Fetcher. Each run uses its own
// session.
type Connector func(ctx context.Context) (Fetcher, error)

// Report summarizes a run.
type Report struct {
	// Windows is the number of windows merged into the dataset.
	Windows int `json:"windows"`
	// Skipped is the number of windows that failed with a portal error.
	Skipped int    `json:"skipped"`
	Updated string `json:"update,omitempty"`
}

// Updater runs one job at a time against the portal and the storage.
type Updater struct {
	connect  Connector
	db       storage.Database
	location *time.Location
	now      func() time.Time

	mu sync.Mutex
}

// New returns an Updater. Dates are computed in loc.
func New(connect Connector, db storage.Database, loc *time.Location) *Updater {
	return &Updater{
		connect:  connect,
		db:       db,
		location: loc,
		now:      time.Now,
	}
}

// Configured returns an Updater opening sessions on portal. It must be
// called after linky.Configured.
func Configured(portal *linky.Portal, db storage.Database) *Updater {
	u := New(func(ctx context.Context) (Fetcher, error) {
		c, err := portal.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, db, nil)

	lflag.Do(func() {
		u.location = portal.Config().Location
	})

	return u
}

func (u *Updater) loc() *time.Location {
	if u.location == nil {
		return time.Local
	}
	return u.location
}

// Periodic fetches the recent windows and applies the incremental update to
// the stored dataset. When nothing is stored yet the whole fetch is kept.
func (u *Updater) Periodic(ctx context.Context) (Report, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.now().In(u.loc())
	ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("job", "periodic")))

	previous, err := u.db.LoadDataset(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load dataset: %w", err)
	}

	f, err := u.connect(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to connect to portal: %w", err)
	}

	fetched, err := f.All(ctx, now)
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch recent data: %w", err)
	}

	var report Report
	for _, g := range types.Granularities {
		if fetched.Series(g) == nil {
			report.Skipped++
		} else {
			report.Windows++
		}
	}

	if isEmpty(previous) {
		log.Ctx(ctx).InfoContext(ctx, "no stored dataset, keeping the whole fetch")
		previous = fetched
	}
	ds := reconcile.Incremental(previous, fetched, now)
	report.Updated = ds.Updated

	if err := u.db.SaveDataset(ctx, ds); err != nil {
		return report, fmt.Errorf("failed to save dataset: %w", err)
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"periodic update done",
		slog.Int("windows", report.Windows),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

func isEmpty(ds types.Dataset) bool {
	for _, g := range types.Granularities {
		if ds.Series(g) != nil {
			return false
		}
	}
	return true
}

// Backfill imports the whole history: every year, then the months of each
// year with data, the days of each month with data and the half hours of
// each day with data. A portal error on one window is logged and the window
// skipped. Any other error stops the run; what was merged until then is
// still saved.
func (u *Updater) Backfill(ctx context.Context) (Report, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("job", "backfill")))

	ds, err := u.db.LoadDataset(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load dataset: %w", err)
	}

	f, err := u.connect(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to connect to portal: %w", err)
	}

	b := backfill{f: f, ds: &ds, loc: u.loc()}
	runErr := b.run(ctx)
	if b.report.Windows == 0 {
		// nothing was merged, leave the stored dataset alone
		return b.report, runErr
	}

	ds.Updated = u.now().In(u.loc()).Format(reconcile.UpdatedLayout)
	b.report.Updated = ds.Updated
	if err := u.db.SaveDataset(ctx, ds); err != nil {
		return b.report, errors.Join(runErr, fmt.Errorf("failed to save dataset: %w", err))
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"backfill done",
		slog.Int("windows", b.report.Windows),
		slog.Int("skipped", b.report.Skipped),
		slog.Bool("complete", runErr == nil),
	)
	return b.report, runErr
}
