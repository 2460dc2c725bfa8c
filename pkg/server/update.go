package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/linkysync/linkysync/pkg/log"
)

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := s.updater.Periodic(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "periodic update failed", slog.Any("error", err))
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleBackfill starts the backfill and returns immediately: a full import
// takes longer than any scheduler waits for.
func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	go func() {
		report, err := s.updater.Backfill(ctx)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "backfill failed", slog.Any("error", err), slog.Int("windows", report.Windows))
			return
		}
		log.Ctx(ctx).InfoContext(ctx, "backfill finished", slog.Int("windows", report.Windows), slog.Int("skipped", report.Skipped))
	}()

	writeJSON(w, http.StatusAccepted, struct {
		Status string `json:"status"`
	}{Status: "started"})
}
