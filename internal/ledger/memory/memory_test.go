package memory

import (
	"context"
	"testing"
	"time"

	"tradebook/internal/core"
	"tradebook/internal/ledger"
)

func seedTrade(t *testing.T, s *Store, date time.Time, pl float64) string {
	t.Helper()
	recID, err := s.CreateRecord(context.Background(), core.NewTrade(date, "AAPL", core.SideBuy, 1, 100, pl, core.InstrumentStocks))
	if err != nil {
		t.Fatalf("create trade: %v", err)
	}
	return recID
}

func TestCreateAndListRecords(t *testing.T) {
	s := New()
	ctx := context.Background()

	d1 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	seedTrade(t, s, d2, -40)
	seedTrade(t, s, d1, 100)

	records, err := s.ListRecords(ctx, ledger.RecordFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if !records[0].Date.Equal(d1) {
		t.Fatalf("records not sorted by date: first is %v", records[0].Date)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := New()
	_, err := s.CreateRecord(context.Background(), core.Record{Kind: "bogus"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSoftDeleteAndRestore(t *testing.T) {
	s := New()
	ctx := context.Background()
	recID := seedTrade(t, s, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 100)

	if err := s.DeleteRecord(ctx, recID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	records, _ := s.ListRecords(ctx, ledger.RecordFilter{})
	if len(records) != 0 {
		t.Fatalf("deleted record still listed")
	}

	archive, _ := s.ListArchive(ctx)
	if len(archive) != 1 || !archive[0].Deleted {
		t.Fatalf("archive = %+v", archive)
	}

	if err := s.RestoreRecord(ctx, recID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	records, _ = s.ListRecords(ctx, ledger.RecordFilter{})
	if len(records) != 1 {
		t.Fatalf("restored record not listed")
	}

	if err := s.DeleteRecord(ctx, "nope"); err != ledger.ErrNotFound {
		t.Fatalf("delete missing: got %v, want ErrNotFound", err)
	}
}

func TestListRecordsFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	seedTrade(t, s, jan, 10)
	seedTrade(t, s, mar, 20)
	if _, err := s.CreateRecord(ctx, core.NewTrade(mar, "EURUSD", core.SideSell, 1, 1, 5, core.InstrumentForex)); err != nil {
		t.Fatalf("create forex trade: %v", err)
	}

	got, _ := s.ListRecords(ctx, ledger.RecordFilter{From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	if len(got) != 2 {
		t.Fatalf("from filter: got %d, want 2", len(got))
	}

	got, _ = s.ListRecords(ctx, ledger.RecordFilter{Instrument: core.InstrumentForex})
	if len(got) != 1 || got[0].Symbol != "EURUSD" {
		t.Fatalf("instrument filter: %+v", got)
	}
}

func TestAccountsAndInitialBalance(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, a := range []core.Account{
		{Name: "Main", InitialBalance: 1000, Currency: "USD"},
		{Name: "Swing", InitialBalance: 250.5, Currency: "USD"},
	} {
		if _, err := s.CreateAccount(ctx, a); err != nil {
			t.Fatalf("create account: %v", err)
		}
	}

	balance, err := s.InitialBalance(ctx)
	if err != nil {
		t.Fatalf("initial balance: %v", err)
	}
	if balance != 1250.5 {
		t.Fatalf("balance = %v, want 1250.5", balance)
	}
}

func TestMoodLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	moodID, err := s.CreateMood(ctx, core.MoodEntry{
		Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Mood: core.MoodHappy,
		Note: "green day",
	})
	if err != nil {
		t.Fatalf("create mood: %v", err)
	}

	moods, _ := s.ListMoods(ctx, time.Time{}, time.Time{})
	if len(moods) != 1 || moods[0].Mood != core.MoodHappy {
		t.Fatalf("moods = %+v", moods)
	}

	if err := s.DeleteMood(ctx, moodID); err != nil {
		t.Fatalf("delete mood: %v", err)
	}
	moods, _ = s.ListMoods(ctx, time.Time{}, time.Time{})
	if len(moods) != 0 {
		t.Fatalf("deleted mood still listed")
	}
}

func TestMirrorUpsertAndRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	trade := core.NewTrade(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		"AAPL", core.SideBuy, 1, 100, 50, core.InstrumentStocks)
	trade.ID = "01AAA"

	if _, err := s.AppendRecord(ctx, trade); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A second append for the same ID overwrites, it does not duplicate.
	trade.ProfitLoss = -10
	if _, err := s.AppendRecord(ctx, trade); err != nil {
		t.Fatalf("re-append: %v", err)
	}
	if len(s.mirror) != 1 {
		t.Fatalf("mirror has %d entries, want 1", len(s.mirror))
	}
	if s.mirror["01AAA"].ProfitLoss != -10 {
		t.Errorf("mirror entry not overwritten: pl = %v", s.mirror["01AAA"].ProfitLoss)
	}

	if err := s.RemoveRecord(ctx, trade); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveRecord(ctx, trade); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
	if len(s.mirror) != 0 {
		t.Errorf("mirror not empty after remove")
	}
}
