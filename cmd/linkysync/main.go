package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkysync/linkysync/pkg/linky"
	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/server"
	"github.com/linkysync/linkysync/pkg/storage"
	"github.com/linkysync/linkysync/pkg/updater"

	"github.com/levenlabs/go-lflag"
)

func main() {
	// init packages
	p := linky.Configured()
	s := storage.Configured()
	u := updater.Configured(p, s)

	// init server
	srv := server.Configured(u, s)

	runOnce := lflag.Bool("run-once", false, "Run the periodic update once and exit instead of serving")

	// parse flags
	lflag.Configure()
	log.ConfigureFromFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	if *runOnce {
		report, err := u.Periodic(ctx)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "periodic update failed", "error", err)
			cancel()
			os.Exit(1)
		}
		log.Ctx(ctx).InfoContext(ctx, "periodic update finished", slog.Int("windows", report.Windows), slog.String("update", report.Updated))
		return
	}

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
