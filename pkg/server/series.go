package server

import (
	"log/slog"
	"net/http"

	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/types"
)

// handleSeries returns one stored series. The optional start and end query
// parameters are inclusive key bounds, e.g. start=2020-01-01&end=2020-01-31.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	g, err := types.ParseGranularity(r.PathValue("granularity"))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start != "" && end != "" && start > end {
		writeJSONError(w, "start must be before end", http.StatusBadRequest)
		return
	}

	ds, err := s.storage.LoadDataset(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load dataset", slog.Any("error", err))
		writeJSONError(w, "failed to load dataset", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ds.Series(g).Range(start, end))
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ds, err := s.storage.LoadDataset(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load dataset", slog.Any("error", err))
		writeJSONError(w, "failed to load dataset", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}
