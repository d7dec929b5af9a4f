// Package adapters glues the SQLite repository and the record service
// into the backend ports the HTTP handlers consume.
package adapters

import (
	"context"
	"time"

	"tradebook/internal/core"
	"tradebook/internal/ledger"
	"tradebook/internal/services"
	"tradebook/internal/storage"
)

// SQLiteAdapter routes writes through RecordService so every mutation
// publishes a mirror-sync message; reads go straight to the repository.
type SQLiteAdapter struct {
	storage *storage.Repository
	service *services.RecordService
}

func NewSQLiteAdapter(storage *storage.Repository, service *services.RecordService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// CreateRecord implements ledger.RecordWriter.
func (a *SQLiteAdapter) CreateRecord(ctx context.Context, r core.Record) (string, error) {
	return a.service.CreateRecord(ctx, r)
}

func (a *SQLiteAdapter) UpdateRecord(ctx context.Context, r core.Record) error {
	return a.service.UpdateRecord(ctx, r)
}

func (a *SQLiteAdapter) DeleteRecord(ctx context.Context, id string) error {
	return a.service.DeleteRecord(ctx, id)
}

func (a *SQLiteAdapter) RestoreRecord(ctx context.Context, id string) error {
	return a.service.RestoreRecord(ctx, id)
}

// GetRecord implements ledger.RecordReader.
func (a *SQLiteAdapter) GetRecord(ctx context.Context, id string) (core.Record, error) {
	return a.storage.GetRecord(ctx, id)
}

func (a *SQLiteAdapter) ListRecords(ctx context.Context, f ledger.RecordFilter) ([]core.Record, error) {
	return a.storage.ListRecords(ctx, f)
}

func (a *SQLiteAdapter) ListArchive(ctx context.Context) ([]core.Record, error) {
	return a.storage.ListArchive(ctx)
}

// CreateAccount implements ledger.AccountStore.
func (a *SQLiteAdapter) CreateAccount(ctx context.Context, acc core.Account) (string, error) {
	return a.storage.CreateAccount(ctx, acc)
}

func (a *SQLiteAdapter) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return a.storage.ListAccounts(ctx)
}

func (a *SQLiteAdapter) InitialBalance(ctx context.Context) (float64, error) {
	return a.storage.InitialBalance(ctx)
}

// CreateMood implements ledger.MoodStore.
func (a *SQLiteAdapter) CreateMood(ctx context.Context, e core.MoodEntry) (string, error) {
	return a.storage.CreateMood(ctx, e)
}

func (a *SQLiteAdapter) ListMoods(ctx context.Context, from, to time.Time) ([]core.MoodEntry, error) {
	return a.storage.ListMoods(ctx, from, to)
}

func (a *SQLiteAdapter) DeleteMood(ctx context.Context, id string) error {
	return a.storage.DeleteMood(ctx, id)
}
