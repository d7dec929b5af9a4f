package core

import (
	"math"
	"sort"
	"time"
)

// Summary is the full statistical picture of the journal: trade metrics,
// cash flow, equity, and the derived series the dashboard charts. It is a
// value object recomputed from scratch on every call; nothing caches inside.
type Summary struct {
	TotalTrades     int     `json:"totalTrades"`
	WinningTrades   int     `json:"winningTrades"`
	LosingTrades    int     `json:"losingTrades"`
	BreakEvenTrades int     `json:"breakEvenTrades"`
	TradingPL       float64 `json:"tradingPL"`
	AveragePL       float64 `json:"averagePL"`
	WinRate         float64 `json:"winRate"`

	TotalWithdrawals float64 `json:"totalWithdrawals"`
	TotalDeposits    float64 `json:"totalDeposits"`
	InitialBalance   float64 `json:"initialBalance"`
	TotalEquity      float64 `json:"totalEquity"`
	// ReturnOnInvestment is the percentage change of equity over the
	// initial balance, zero when there is no funded baseline.
	ReturnOnInvestment float64 `json:"returnOnInvestment"`

	// MonthlyCumulativePL holds a running total per calendar month, in
	// chronological order. Each entry's value includes all prior months;
	// it is not the month's own delta.
	MonthlyCumulativePL []MonthlyPL `json:"monthlyCumulativePL"`

	PerformanceBySymbol map[string]SymbolPerformance `json:"performanceBySymbol"`

	EquityCurve []EquityPoint `json:"equityCurve"`
}

// MonthlyPL pairs a YYYY-MM month key with the cumulative P/L through the
// end of that month.
type MonthlyPL struct {
	Month        string  `json:"month"`
	CumulativePL float64 `json:"cumulativePL"`
}

// SymbolPerformance aggregates trades that share a symbol.
type SymbolPerformance struct {
	ProfitLoss    float64    `json:"pl"`
	Instrument    Instrument `json:"instrument"`
	Trades        int        `json:"trades"`
	WinningTrades int        `json:"winningTrades"`
}

// EquityPoint is one point of the equity curve.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

const monthKeyLayout = "2006-01"

// ComputeStatistics turns the ledger into a Summary. It is pure and total:
// records must already exclude soft-deleted entries, initialBalance is the
// account baseline, and now anchors the equity curve when the ledger is
// empty. No validation happens here; that is the ingestion boundary's job.
func ComputeStatistics(records []Record, initialBalance float64, now time.Time) Summary {
	s := Summary{
		InitialBalance:      initialBalance,
		PerformanceBySymbol: make(map[string]SymbolPerformance),
	}

	monthly := make(map[string]float64)
	for _, r := range records {
		switch r.Kind {
		case KindTrade:
			s.TotalTrades++
			s.TradingPL += r.ProfitLoss
			switch {
			case r.ProfitLoss > 0:
				s.WinningTrades++
			case r.ProfitLoss < 0:
				s.LosingTrades++
			}

			perf := s.PerformanceBySymbol[r.Symbol]
			perf.Instrument = r.Instrument
			perf.ProfitLoss += r.ProfitLoss
			perf.Trades++
			if r.ProfitLoss > 0 {
				perf.WinningTrades++
			}
			s.PerformanceBySymbol[r.Symbol] = perf

			monthly[r.Date.Format(monthKeyLayout)] += r.ProfitLoss
		case KindWithdrawal:
			s.TotalWithdrawals += r.Price
		case KindDeposit:
			s.TotalDeposits += r.Price
		}
	}
	s.BreakEvenTrades = s.TotalTrades - s.WinningTrades - s.LosingTrades

	if s.TotalTrades > 0 {
		s.AveragePL = s.TradingPL / float64(s.TotalTrades)
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	}

	s.MonthlyCumulativePL = cumulativeByMonth(monthly)

	s.TotalEquity = initialBalance + s.TradingPL - s.TotalWithdrawals + s.TotalDeposits
	if initialBalance != 0 {
		s.ReturnOnInvestment = (s.TotalEquity - initialBalance) / initialBalance * 100
	}

	s.EquityCurve = equityCurve(records, initialBalance, now)

	return s
}

// cumulativeByMonth turns per-month P/L deltas into a chronologically
// ordered running total. YYYY-MM keys sort lexicographically in date order.
func cumulativeByMonth(monthly map[string]float64) []MonthlyPL {
	if len(monthly) == 0 {
		return nil
	}

	keys := make([]string, 0, len(monthly))
	for k := range monthly {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]MonthlyPL, 0, len(keys))
	var running float64
	for _, k := range keys {
		running += monthly[k]
		out = append(out, MonthlyPL{Month: k, CumulativePL: running})
	}
	return out
}

// equityCurve folds every record, in date order, over the initial balance.
// Each step rounds to cents so floating-point drift never shows on the
// chart. A gap of more than one calendar day inserts a held-equity midpoint
// so flat periods render as a plateau instead of a long slope; the
// smoothing is cosmetic and touches no other metric.
func equityCurve(records []Record, initialBalance float64, now time.Time) []EquityPoint {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	seedDate := now
	if len(sorted) > 0 {
		seedDate = sorted[0].Date
	}

	curve := make([]EquityPoint, 0, len(sorted)+1)
	curve = append(curve, EquityPoint{Date: seedDate, Equity: round2(initialBalance)})

	equity := initialBalance
	for _, r := range sorted {
		var change float64
		switch r.Kind {
		case KindWithdrawal:
			change = -r.Price
		case KindDeposit:
			change = r.Price
		case KindTrade:
			change = r.ProfitLoss
		}

		prev := curve[len(curve)-1]
		if gapDays := int(r.Date.Sub(prev.Date).Hours() / 24); gapDays > 1 {
			mid := prev.Date.Add(time.Duration(float64(gapDays) * 12 * float64(time.Hour)))
			curve = append(curve, EquityPoint{Date: mid, Equity: prev.Equity})
		}

		equity = round2(equity + change)
		curve = append(curve, EquityPoint{Date: r.Date, Equity: equity})
	}

	return curve
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
