package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tradebook/internal/core"
	"tradebook/internal/ledger/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	s := NewServer(":0", store, store, store, store)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, store
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func createdID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ID == "" {
		t.Fatal("response id is empty")
	}
	return body.ID
}

func TestCreateTrade(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"aapl","side":"Buy","qty":10,"price":150,"profitLoss":42.5,"instrument":"Stocks"}`)
	recordID := createdID(t, rec)

	got := doJSON(t, s, http.MethodGet, "/api/records/"+recordID, "")
	if got.Code != http.StatusOK {
		t.Fatalf("get status = %d", got.Code)
	}
	var record core.Record
	if err := json.Unmarshal(got.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", record.Symbol)
	}
	if record.Kind != core.KindTrade {
		t.Errorf("kind = %q", record.Kind)
	}
}

func TestCreateTradeValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"","side":"Buy","qty":10,"price":150,"instrument":"Stocks"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCreateTradeBadJSON(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/trades", `{"date": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateTradeUnknownField(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"AAPL","side":"Buy","qty":1,"price":1,"instrument":"Stocks","bogus":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateWithdrawalAndDeposit(t *testing.T) {
	s, _ := newTestServer(t)

	createdID(t, doJSON(t, s, http.MethodPost, "/api/withdrawals",
		`{"date":"2024-03-10","amount":100,"description":"rent"}`))
	createdID(t, doJSON(t, s, http.MethodPost, "/api/deposits",
		`{"date":"2024-03-11","amount":250}`))

	rec := doJSON(t, s, http.MethodGet, "/api/records", "")
	var records []core.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
}

func TestListRecordsInstrumentFilter(t *testing.T) {
	s, _ := newTestServer(t)

	createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"AAPL","side":"Buy","qty":1,"price":1,"instrument":"Stocks"}`))
	createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-06","symbol":"EURUSD","side":"Sell","qty":1,"price":1,"instrument":"Forex"}`))

	rec := doJSON(t, s, http.MethodGet, "/api/records?instrument=Forex", "")
	var records []core.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 || records[0].Symbol != "EURUSD" {
		t.Errorf("filtered records = %+v", records)
	}

	bad := doJSON(t, s, http.MethodGet, "/api/records?instrument=Bonds", "")
	if bad.Code != http.StatusBadRequest {
		t.Errorf("invalid instrument status = %d, want 400", bad.Code)
	}
}

func TestDeleteArchiveRestore(t *testing.T) {
	s, _ := newTestServer(t)

	recordID := createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"AAPL","side":"Buy","qty":1,"price":1,"instrument":"Stocks"}`))

	if rec := doJSON(t, s, http.MethodDelete, "/api/records/"+recordID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	var live []core.Record
	_ = json.Unmarshal(doJSON(t, s, http.MethodGet, "/api/records", "").Body.Bytes(), &live)
	if len(live) != 0 {
		t.Errorf("live records = %d, want 0", len(live))
	}

	var archived []core.Record
	_ = json.Unmarshal(doJSON(t, s, http.MethodGet, "/api/archive", "").Body.Bytes(), &archived)
	if len(archived) != 1 {
		t.Fatalf("archived records = %d, want 1", len(archived))
	}

	if rec := doJSON(t, s, http.MethodPost, "/api/records/"+recordID+"/restore", ""); rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d", rec.Code)
	}
	_ = json.Unmarshal(doJSON(t, s, http.MethodGet, "/api/records", "").Body.Bytes(), &live)
	if len(live) != 1 {
		t.Errorf("restored records = %d, want 1", len(live))
	}
}

func TestRecordNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := doJSON(t, s, http.MethodGet, "/api/records/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodDelete, "/api/records/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404", rec.Code)
	}
}

func TestUpdateTrade(t *testing.T) {
	s, _ := newTestServer(t)

	recordID := createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"AAPL","side":"Buy","qty":1,"price":1,"profitLoss":10,"instrument":"Stocks"}`))

	rec := doJSON(t, s, http.MethodPut, "/api/records/"+recordID,
		`{"date":"2024-03-05","symbol":"AAPL","side":"Sell","qty":2,"price":3,"profitLoss":-5,"instrument":"Stocks"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var record core.Record
	_ = json.Unmarshal(doJSON(t, s, http.MethodGet, "/api/records/"+recordID, "").Body.Bytes(), &record)
	if record.ProfitLoss != -5 || record.Side != core.SideSell {
		t.Errorf("updated record = %+v", record)
	}
}

func TestAccounts(t *testing.T) {
	s, _ := newTestServer(t)

	createdID(t, doJSON(t, s, http.MethodPost, "/api/accounts",
		`{"name":"Main","initialBalance":1000,"currency":"USD"}`))

	if rec := doJSON(t, s, http.MethodPost, "/api/accounts", `{"name":"","initialBalance":10}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid account status = %d, want 422", rec.Code)
	}

	var accounts []core.Account
	_ = json.Unmarshal(doJSON(t, s, http.MethodGet, "/api/accounts", "").Body.Bytes(), &accounts)
	if len(accounts) != 1 || accounts[0].Name != "Main" {
		t.Errorf("accounts = %+v", accounts)
	}
}

func TestMoods(t *testing.T) {
	s, _ := newTestServer(t)

	moodID := createdID(t, doJSON(t, s, http.MethodPost, "/api/moods",
		`{"date":"2024-03-05","mood":"happy","note":"green day"}`))

	if rec := doJSON(t, s, http.MethodPost, "/api/moods", `{"date":"2024-03-05","mood":"ecstatic"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid mood status = %d, want 422", rec.Code)
	}

	var moods []core.MoodEntry
	_ = json.Unmarshal(doJSON(t, s, http.MethodGet, "/api/moods", "").Body.Bytes(), &moods)
	if len(moods) != 1 || moods[0].Mood != core.MoodHappy {
		t.Fatalf("moods = %+v", moods)
	}
	if moods[0].Score != core.MoodHappy.Score() {
		t.Errorf("mood score = %d, want %d", moods[0].Score, core.MoodHappy.Score())
	}

	if rec := doJSON(t, s, http.MethodDelete, "/api/moods/"+moodID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete mood status = %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	createdID(t, doJSON(t, s, http.MethodPost, "/api/accounts",
		`{"name":"Main","initialBalance":1000,"currency":"USD"}`))
	createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"AAPL","side":"Buy","qty":10,"price":150,"profitLoss":50,"instrument":"Stocks"}`))
	createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-06","symbol":"TSLA","side":"Sell","qty":2,"price":200,"profitLoss":-20,"instrument":"Stocks"}`))
	createdID(t, doJSON(t, s, http.MethodPost, "/api/withdrawals",
		`{"date":"2024-03-07","amount":100}`))
	createdID(t, doJSON(t, s, http.MethodPost, "/api/deposits",
		`{"date":"2024-03-08","amount":100}`))

	rec := doJSON(t, s, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var summary core.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalTrades != 2 {
		t.Errorf("totalTrades = %d, want 2", summary.TotalTrades)
	}
	if summary.TradingPL != 30 {
		t.Errorf("tradingPL = %v, want 30", summary.TradingPL)
	}
	if summary.TotalEquity != 1030 {
		t.Errorf("totalEquity = %v, want 1030", summary.TotalEquity)
	}
	if summary.ReturnOnInvestment != 3 {
		t.Errorf("returnOnInvestment = %v, want 3", summary.ReturnOnInvestment)
	}
	if summary.WinRate != 50 {
		t.Errorf("winRate = %v, want 50", summary.WinRate)
	}
}

func TestStatsCacheInvalidatedByWrite(t *testing.T) {
	s, _ := newTestServer(t)

	createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"AAPL","side":"Buy","qty":1,"price":1,"profitLoss":10,"instrument":"Stocks"}`))

	var first core.Summary
	_ = json.Unmarshal(doJSON(t, s, http.MethodGet, "/api/stats", "").Body.Bytes(), &first)
	if first.TradingPL != 10 {
		t.Fatalf("tradingPL = %v, want 10", first.TradingPL)
	}

	createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-06","symbol":"AAPL","side":"Buy","qty":1,"price":1,"profitLoss":5,"instrument":"Stocks"}`))

	var second core.Summary
	_ = json.Unmarshal(doJSON(t, s, http.MethodGet, "/api/stats", "").Body.Bytes(), &second)
	if second.TradingPL != 15 {
		t.Errorf("tradingPL after write = %v, want 15", second.TradingPL)
	}
}

func TestChartEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-05","symbol":"AAPL","side":"Buy","qty":1,"price":1,"profitLoss":10,"instrument":"Stocks"}`))
	createdID(t, doJSON(t, s, http.MethodPost, "/api/trades",
		`{"date":"2024-03-06","symbol":"AAPL","side":"Buy","qty":1,"price":1,"profitLoss":-4,"instrument":"Stocks"}`))

	for _, path := range []string{"/api/stats/equity-curve.png", "/api/stats/monthly-pl.png"} {
		rec := doJSON(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s content type = %q", path, ct)
		}
		if rec.Body.Len() == 0 {
			t.Errorf("%s body is empty", path)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := doJSON(t, s, http.MethodDelete, "/api/trades", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/stats", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := doJSON(t, s, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}
