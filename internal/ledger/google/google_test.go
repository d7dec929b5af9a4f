package google

import (
	"context"
	"testing"
	"time"

	"tradebook/internal/core"
)

func TestRecordRowLayout(t *testing.T) {
	trade := core.NewTrade(
		time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		"AAPL", core.SideBuy, 10, 150.25, 42.5, core.InstrumentStocks)
	trade.ID = "01HZXK3V9QJ4"
	trade.Description = "breakout"

	row := recordRow(trade)

	if len(row) != 10 {
		t.Fatalf("recordRow length = %d, want 10", len(row))
	}
	if row[0] != "01HZXK3V9QJ4" {
		t.Errorf("ID column = %v", row[0])
	}
	if row[1] != "trade" {
		t.Errorf("kind column = %v", row[1])
	}
	if row[2] != "2024-03-05" {
		t.Errorf("date column = %v", row[2])
	}
	if row[5] != 10.0 || row[6] != 150.25 {
		t.Errorf("qty/price columns = %v, %v", row[5], row[6])
	}
}

func TestRowForID(t *testing.T) {
	values := [][]any{
		{"01AAA"},
		{"01BBB"},
		{" 01CCC "},
	}

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"existing ID overwrites its row", "01BBB", 2},
		{"whitespace around the cell is ignored", "01CCC", 3},
		{"unknown ID lands on the first free row", "01DDD", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowForID(values, tt.id); got != tt.want {
				t.Errorf("rowForID(%q) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}

	if got := rowForID(nil, "01AAA"); got != 1 {
		t.Errorf("rowForID on empty sheet = %d, want 1", got)
	}
}

func TestNewFromEnvRequiresSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("NewFromEnv should fail without GOOGLE_SPREADSHEET_ID")
	}
}

func TestAppendRecordRejectsInvalid(t *testing.T) {
	client := &Client{spreadsheetID: "test", sheetName: "Records"}

	bad := core.NewTrade(
		time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		"", core.SideBuy, 10, 150, 0, core.InstrumentStocks)

	if _, err := client.AppendRecord(context.Background(), bad); err == nil {
		t.Fatal("AppendRecord should reject an invalid record")
	}
}
