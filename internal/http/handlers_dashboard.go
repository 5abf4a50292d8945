package http

import (
	"log/slog"
	"net/http"
	"time"

	"gastobot/internal/core"
	"gastobot/internal/rates"
	"gastobot/internal/store"
)

// handleSummary aggregates transactions over a date range. Defaults to the
// current month; results are cached per period.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	now := time.Now()
	from := core.NewDate(now.Year(), int(now.Month()), 1)
	to := core.DateOf(now)
	if d, err := core.ParseDate(q.Get("start_date")); err == nil && !d.IsZero() {
		from = d
	}
	if d, err := core.ParseDate(q.Get("end_date")); err == nil && !d.IsZero() {
		to = d
	}

	cacheKey := from.String() + ":" + to.String()
	if summary, ok := s.summaryCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, summaryResponse(summary, from, to))
		return
	}

	txs, err := s.store.ListTransactions(r.Context(), store.TransactionFilter{
		From:  from,
		To:    to,
		Limit: 1000,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	summary := core.BuildSummary(txs)
	s.summaryCache.Set(cacheKey, summary)
	writeJSON(w, http.StatusOK, summaryResponse(summary, from, to))
}

func summaryResponse(s core.Summary, from, to core.Date) map[string]any {
	return map[string]any{
		"start_date":        from.String(),
		"end_date":          to.String(),
		"total_income":      s.TotalIncome,
		"total_expenses":    s.TotalExpenses,
		"total_investments": s.TotalInvestments,
		"net_balance":       s.NetBalance,
		"transaction_count": s.TransactionCount,
		"by_tag":            s.ByTag,
		"by_category":       s.ByCategory,
	}
}

// handleRates serves cached crypto quotes for the dashboard.
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	snap, err := s.rates.Prices(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Rates fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch rates")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prices":     snap.Prices,
		"fetched_at": snap.FetchedAt,
		"symbols":    rates.SymbolMap(),
	})
}
