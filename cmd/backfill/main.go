package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"
	"github.com/linkysync/linkysync/pkg/linky"
	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/storage"
	"github.com/linkysync/linkysync/pkg/updater"
)

// backfill imports the whole consumption history available on the portal
// into the configured storage.
func main() {
	p := linky.Configured()
	s := storage.Configured()
	u := updater.Configured(p, s)
	lflag.Configure()
	log.ConfigureFromFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Ctx(ctx).InfoContext(ctx, "importing history")
	report, err := u.Backfill(ctx)
	if cerr := s.Close(); cerr != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", cerr)
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "backfill failed", "error", err, slog.Int("windows", report.Windows))
		cancel()
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(
		ctx,
		"backfill finished",
		slog.Int("windows", report.Windows),
		slog.Int("skipped", report.Skipped),
	)
}
