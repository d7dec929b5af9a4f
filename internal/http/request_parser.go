package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tradebook/internal/core"
	"tradebook/internal/ledger"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type tradeRequest struct {
	Date        string  `json:"date"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Qty         float64 `json:"qty"`
	Price       float64 `json:"price"`
	ProfitLoss  float64 `json:"profitLoss"`
	Instrument  string  `json:"instrument"`
	Description string  `json:"description"`
	Screenshot  string  `json:"screenshot"`
}

type cashFlowRequest struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type accountRequest struct {
	Name           string  `json:"name"`
	InitialBalance float64 `json:"initialBalance"`
	Currency       string  `json:"currency"`
}

type moodRequest struct {
	Date string `json:"date"`
	Mood string `json:"mood"`
	Note string `json:"note"`
}

func decodeBody(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseDate accepts a plain date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func (req tradeRequest) toRecord() (core.Record, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Record{}, err
	}
	trade := core.NewTrade(date, sanitizeInput(req.Symbol), core.Side(req.Side),
		req.Qty, req.Price, req.ProfitLoss, core.Instrument(req.Instrument))
	trade.Description = sanitizeInput(req.Description)
	trade.Screenshot = sanitizeInput(req.Screenshot)
	return trade, nil
}

func (req cashFlowRequest) toRecord(kind core.Kind) (core.Record, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Record{}, err
	}
	if kind == core.KindWithdrawal {
		return core.NewWithdrawal(date, req.Amount, sanitizeInput(req.Description)), nil
	}
	return core.NewDeposit(date, req.Amount, sanitizeInput(req.Description)), nil
}

func (req accountRequest) toAccount() core.Account {
	return core.Account{
		Name:           sanitizeInput(req.Name),
		InitialBalance: req.InitialBalance,
		Currency:       sanitizeInput(req.Currency),
	}
}

func (req moodRequest) toMoodEntry() (core.MoodEntry, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.MoodEntry{}, err
	}
	return core.NewMoodEntry(date, core.Mood(req.Mood), sanitizeInput(req.Note)), nil
}

// parseRecordFilter reads from, to, and instrument query parameters.
// The "to" bound is inclusive of the whole day when given as a plain
// date.
func parseRecordFilter(r *http.Request) (ledger.RecordFilter, error) {
	var f ledger.RecordFilter
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return f, err
		}
		if len(v) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if v := q.Get("instrument"); v != "" {
		instrument := core.Instrument(v)
		if !instrument.Valid() {
			return f, fmt.Errorf("invalid instrument %q", v)
		}
		f.Instrument = instrument
	}

	return f, nil
}

func filterCacheKey(f ledger.RecordFilter) string {
	return fmt.Sprintf("%d|%d|%s", f.From.UnixNano(), f.To.UnixNano(), f.Instrument)
}
