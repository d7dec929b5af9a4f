package http

import (
	"context"
	"net/http"
	"time"

	"tradebook/internal/charts"
	"tradebook/internal/core"
	"tradebook/internal/ledger"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	filter, err := parseRecordFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.computeSummary(r.Context(), filterCacheKey(filter), filter)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Statistics error", "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleEquityCurveChart(w http.ResponseWriter, r *http.Request) {
	s.handleChart(w, r, "equity", charts.RenderEquityCurve)
}

func (s *Server) handleMonthlyPLChart(w http.ResponseWriter, r *http.Request) {
	s.handleChart(w, r, "monthly", charts.RenderMonthlyPL)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request, name string, render func(core.Summary) ([]byte, error)) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	filter, err := parseRecordFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := name + "|" + filterCacheKey(filter)
	if png, found := s.chartCache.Get(key); found {
		writePNG(w, png)
		return
	}

	summary, err := s.computeSummary(r.Context(), filterCacheKey(filter), filter)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Statistics error", "error", err)
		writeDomainError(w, err)
		return
	}

	png, err := render(summary)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Chart render error", "error", err, "chart", name)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.chartCache.Set(key, png)
	writePNG(w, png)
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// computeSummary loads the filtered records plus the account baseline
// and runs the aggregation, caching the result per filter.
func (s *Server) computeSummary(ctx context.Context, key string, filter ledger.RecordFilter) (core.Summary, error) {
	if summary, found := s.statsCache.Get(key); found {
		s.log.DebugContext(ctx, "Stats cache hit", "key", key)
		return summary, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()

	records, err := s.reader.ListRecords(cctx, filter)
	if err != nil {
		return core.Summary{}, err
	}
	initialBalance, err := s.accounts.InitialBalance(cctx)
	if err != nil {
		return core.Summary{}, err
	}

	summary := core.ComputeStatistics(records, initialBalance, time.Now().UTC())
	s.statsCache.Set(key, summary)
	return summary, nil
}
