package core

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func trade(date time.Time, symbol string, pl float64) Record {
	return NewTrade(date, symbol, SideBuy, 1, 100, pl, InstrumentStocks)
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeStatisticsEmpty(t *testing.T) {
	now := day(2024, time.June, 1)
	s := ComputeStatistics(nil, 1000, now)

	if s.TotalTrades != 0 || s.WinningTrades != 0 || s.LosingTrades != 0 {
		t.Fatalf("expected zero trade counts, got %+v", s)
	}
	if s.WinRate != 0 || s.AveragePL != 0 || s.ReturnOnInvestment != 0 {
		t.Fatalf("expected zero rates, got winRate=%v avg=%v roi=%v", s.WinRate, s.AveragePL, s.ReturnOnInvestment)
	}
	if s.TotalEquity != 1000 {
		t.Fatalf("expected equity 1000, got %v", s.TotalEquity)
	}
	if len(s.EquityCurve) != 1 {
		t.Fatalf("expected single seed point, got %d", len(s.EquityCurve))
	}
	if !s.EquityCurve[0].Date.Equal(now) || s.EquityCurve[0].Equity != 1000 {
		t.Fatalf("seed point wrong: %+v", s.EquityCurve[0])
	}
	if len(s.MonthlyCumulativePL) != 0 {
		t.Fatalf("expected no monthly series, got %v", s.MonthlyCumulativePL)
	}
}

func TestComputeStatisticsWorkedExample(t *testing.T) {
	// Two trades in January, one withdrawal in February.
	records := []Record{
		trade(day(2024, time.January, 5), "AAPL", 100),
		trade(day(2024, time.January, 20), "AAPL", -40),
		NewWithdrawal(day(2024, time.February, 1), 30, ""),
	}

	s := ComputeStatistics(records, 1000, day(2024, time.June, 1))

	if s.TotalTrades != 2 || s.WinningTrades != 1 || s.LosingTrades != 1 || s.BreakEvenTrades != 0 {
		t.Fatalf("trade counts wrong: %+v", s)
	}
	if !almost(s.TradingPL, 60) {
		t.Fatalf("tradingPL = %v, want 60", s.TradingPL)
	}
	if !almost(s.WinRate, 50) {
		t.Fatalf("winRate = %v, want 50", s.WinRate)
	}
	if !almost(s.AveragePL, 30) {
		t.Fatalf("averagePL = %v, want 30", s.AveragePL)
	}
	if !almost(s.TotalWithdrawals, 30) || s.TotalDeposits != 0 {
		t.Fatalf("cash flow wrong: w=%v d=%v", s.TotalWithdrawals, s.TotalDeposits)
	}
	if !almost(s.TotalEquity, 1030) {
		t.Fatalf("totalEquity = %v, want 1030", s.TotalEquity)
	}
	if !almost(s.ReturnOnInvestment, 3.0) {
		t.Fatalf("roi = %v, want 3.0", s.ReturnOnInvestment)
	}
}

func TestComputeStatisticsDepositZeroBalance(t *testing.T) {
	records := []Record{NewDeposit(day(2024, time.March, 1), 500, "funding")}

	s := ComputeStatistics(records, 0, day(2024, time.June, 1))

	if !almost(s.TotalEquity, 500) {
		t.Fatalf("totalEquity = %v, want 500", s.TotalEquity)
	}
	// ROI is guarded when there is no funded baseline.
	if s.ReturnOnInvestment != 0 {
		t.Fatalf("roi = %v, want 0", s.ReturnOnInvestment)
	}
}

func TestBreakEvenTrades(t *testing.T) {
	records := []Record{
		trade(day(2024, time.January, 1), "ES", 10),
		trade(day(2024, time.January, 2), "ES", 0),
		trade(day(2024, time.January, 3), "ES", 0),
		trade(day(2024, time.January, 4), "ES", -5),
	}

	s := ComputeStatistics(records, 100, day(2024, time.June, 1))

	if s.TotalTrades != 4 || s.WinningTrades != 1 || s.LosingTrades != 1 {
		t.Fatalf("counts wrong: %+v", s)
	}
	if s.BreakEvenTrades != 2 {
		t.Fatalf("breakEven = %d, want 2", s.BreakEvenTrades)
	}
	if s.WinningTrades+s.LosingTrades > s.TotalTrades {
		t.Fatalf("winning+losing exceeds total")
	}
}

func TestEquityIdentity(t *testing.T) {
	records := []Record{
		trade(day(2024, time.January, 2), "EURUSD", 120.5),
		NewDeposit(day(2024, time.January, 3), 250, ""),
		trade(day(2024, time.January, 4), "EURUSD", -80.25),
		NewWithdrawal(day(2024, time.January, 5), 100, ""),
		trade(day(2024, time.January, 6), "GBPUSD", 15.75),
	}

	s := ComputeStatistics(records, 2000, day(2024, time.June, 1))

	want := 2000 + s.TradingPL - s.TotalWithdrawals + s.TotalDeposits
	if !almost(s.TotalEquity, want) {
		t.Fatalf("totalEquity = %v, want %v", s.TotalEquity, want)
	}

	last := s.EquityCurve[len(s.EquityCurve)-1]
	if !almost(last.Equity, s.TotalEquity) {
		t.Fatalf("curve ends at %v, totalEquity %v", last.Equity, s.TotalEquity)
	}
}

func TestMonthlyCumulativeSeries(t *testing.T) {
	// December gains, January loses, February recovers. The series must be
	// a running total in chronological order across the year boundary.
	records := []Record{
		trade(day(2024, time.February, 10), "NQ", 300),
		trade(day(2023, time.December, 15), "NQ", 500),
		trade(day(2024, time.January, 20), "NQ", -200),
	}

	s := ComputeStatistics(records, 1000, day(2024, time.June, 1))

	want := []MonthlyPL{
		{Month: "2023-12", CumulativePL: 500},
		{Month: "2024-01", CumulativePL: 300},
		{Month: "2024-02", CumulativePL: 600},
	}
	if !reflect.DeepEqual(s.MonthlyCumulativePL, want) {
		t.Fatalf("monthly series = %v, want %v", s.MonthlyCumulativePL, want)
	}

	// The losing month dips by exactly its own loss.
	dip := want[0].CumulativePL - want[1].CumulativePL
	if !almost(dip, 200) {
		t.Fatalf("dip = %v, want 200", dip)
	}
}

func TestPerSymbolSumsMatchTradingPL(t *testing.T) {
	records := []Record{
		trade(day(2024, time.January, 1), "AAPL", 100),
		trade(day(2024, time.January, 2), "TSLA", -30),
		trade(day(2024, time.January, 3), "AAPL", 45.5),
		trade(day(2024, time.January, 4), "MSFT", 0),
		NewDeposit(day(2024, time.January, 5), 500, ""),
	}

	s := ComputeStatistics(records, 1000, day(2024, time.June, 1))

	var total float64
	for _, perf := range s.PerformanceBySymbol {
		total += perf.ProfitLoss
	}
	if !almost(total, s.TradingPL) {
		t.Fatalf("symbol sums %v != tradingPL %v", total, s.TradingPL)
	}

	aapl := s.PerformanceBySymbol["AAPL"]
	if aapl.Trades != 2 || aapl.WinningTrades != 2 || !almost(aapl.ProfitLoss, 145.5) {
		t.Fatalf("AAPL perf wrong: %+v", aapl)
	}
	if aapl.Instrument != InstrumentStocks {
		t.Fatalf("AAPL instrument = %q", aapl.Instrument)
	}
	msft := s.PerformanceBySymbol["MSFT"]
	if msft.Trades != 1 || msft.WinningTrades != 0 {
		t.Fatalf("MSFT perf wrong: %+v", msft)
	}
}

func TestEquityCurveGapSmoothing(t *testing.T) {
	// Five-day gap between the two trades: one held-equity midpoint gets
	// inserted before the second trade's point.
	records := []Record{
		trade(day(2024, time.January, 1), "ES", 100),
		trade(day(2024, time.January, 6), "ES", 50),
	}

	s := ComputeStatistics(records, 1000, day(2024, time.June, 1))

	// seed, trade1, midpoint, trade2
	if len(s.EquityCurve) != 4 {
		t.Fatalf("expected 4 points, got %d: %v", len(s.EquityCurve), s.EquityCurve)
	}

	mid := s.EquityCurve[2]
	if !almost(mid.Equity, 1100) {
		t.Fatalf("midpoint equity = %v, want held 1100", mid.Equity)
	}
	if !mid.Date.After(s.EquityCurve[1].Date) || !mid.Date.Before(s.EquityCurve[3].Date) {
		t.Fatalf("midpoint date %v not between trades", mid.Date)
	}

	// Smoothing is cosmetic: totals are untouched.
	if !almost(s.TotalEquity, 1150) {
		t.Fatalf("totalEquity = %v, want 1150", s.TotalEquity)
	}
}

func TestEquityCurveNoSmoothingWithinOneDay(t *testing.T) {
	records := []Record{
		trade(day(2024, time.January, 1), "ES", 10),
		trade(day(2024, time.January, 2), "ES", 20),
	}

	s := ComputeStatistics(records, 100, day(2024, time.June, 1))

	if len(s.EquityCurve) != 3 {
		t.Fatalf("expected 3 points (no midpoint), got %d", len(s.EquityCurve))
	}
}

func TestEquityCurveRoundsEachStep(t *testing.T) {
	// 0.1 + 0.2 style drift must be rounded away at every fold step.
	records := []Record{
		trade(day(2024, time.January, 1), "ES", 0.1),
		trade(day(2024, time.January, 2), "ES", 0.2),
	}

	s := ComputeStatistics(records, 100, day(2024, time.June, 1))

	last := s.EquityCurve[len(s.EquityCurve)-1]
	if last.Equity != 100.3 {
		t.Fatalf("curve end = %v, want exactly 100.3", last.Equity)
	}
}

func TestEquityCurveUnsortedInput(t *testing.T) {
	// The fold sorts by date itself; input order must not matter.
	records := []Record{
		NewWithdrawal(day(2024, time.January, 3), 50, ""),
		trade(day(2024, time.January, 1), "ES", 100),
		NewDeposit(day(2024, time.January, 2), 25, ""),
	}

	s := ComputeStatistics(records, 1000, day(2024, time.June, 1))

	want := []float64{1000, 1100, 1125, 1075}
	if len(s.EquityCurve) != len(want) {
		t.Fatalf("curve length %d, want %d", len(s.EquityCurve), len(want))
	}
	for i, p := range s.EquityCurve {
		if !almost(p.Equity, want[i]) {
			t.Fatalf("point %d equity = %v, want %v", i, p.Equity, want[i])
		}
	}
}

func TestComputeStatisticsIdempotent(t *testing.T) {
	records := []Record{
		trade(day(2024, time.January, 5), "AAPL", 100),
		NewWithdrawal(day(2024, time.February, 1), 30, ""),
		NewDeposit(day(2024, time.March, 1), 200, ""),
	}
	now := day(2024, time.June, 1)

	a := ComputeStatistics(records, 1000, now)
	b := ComputeStatistics(records, 1000, now)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two identical calls disagree:\n%+v\n%+v", a, b)
	}
}

func TestComputeStatisticsDoesNotMutateInput(t *testing.T) {
	records := []Record{
		trade(day(2024, time.January, 6), "ES", 50),
		trade(day(2024, time.January, 1), "ES", 100),
	}

	_ = ComputeStatistics(records, 1000, day(2024, time.June, 1))

	if !records[0].Date.Equal(day(2024, time.January, 6)) {
		t.Fatalf("input slice was reordered")
	}
}
