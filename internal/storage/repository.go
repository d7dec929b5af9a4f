// Package storage is the SQLite persistence layer for the journal: ledger
// records, accounts, mood entries, and the mirror-sync bookkeeping the
// worker relies on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tradebook/internal/core"
	"tradebook/internal/ledger"
	applog "tradebook/internal/log"
	"tradebook/pkg/id"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, log: applog.ForComponent(applog.ComponentStorage)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const recordColumns = `id, kind, date, symbol, side, qty, price, pl, instrument, description, screenshot, deleted, deleted_at, created_at, updated_at`

// CreateRecord implements ledger.RecordWriter.
func (r *Repository) CreateRecord(ctx context.Context, rec core.Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	if rec.ID == "" {
		rec.ID = id.New()
	}
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, kind, date, symbol, side, qty, price, pl, instrument, description, screenshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.Date.UTC(), rec.Symbol, string(rec.Side),
		rec.Qty, rec.Price, rec.ProfitLoss, string(rec.Instrument),
		rec.Description, rec.Screenshot, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	r.log.InfoContext(ctx, "Record saved",
		"id", rec.ID,
		"kind", rec.Kind,
		"symbol", rec.Symbol,
		"date", rec.Date.Format("2006-01-02"))

	return rec.ID, nil
}

// UpdateRecord rewrites a live record and queues it for re-sync.
func (r *Repository) UpdateRecord(ctx context.Context, rec core.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE records
		SET kind = ?, date = ?, symbol = ?, side = ?, qty = ?, price = ?, pl = ?,
		    instrument = ?, description = ?, screenshot = ?,
		    updated_at = ?, version = version + 1, synced = 0, sync_error = 0
		WHERE id = ? AND deleted = 0`,
		string(rec.Kind), rec.Date.UTC(), rec.Symbol, string(rec.Side),
		rec.Qty, rec.Price, rec.ProfitLoss, string(rec.Instrument),
		rec.Description, rec.Screenshot, time.Now().UTC(), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteRecord soft-deletes; the row stays in the archive until restored.
func (r *Repository) DeleteRecord(ctx context.Context, recordID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET deleted = 1, deleted_at = ?, synced = 0, sync_error = 0
		WHERE id = ? AND deleted = 0`,
		time.Now().UTC(), recordID,
	)
	if err != nil {
		return fmt.Errorf("soft delete record: %w", err)
	}
	return requireRowAffected(res)
}

func (r *Repository) RestoreRecord(ctx context.Context, recordID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET deleted = 0, deleted_at = NULL, updated_at = ?, synced = 0, sync_error = 0
		WHERE id = ? AND deleted = 1`,
		time.Now().UTC(), recordID,
	)
	if err != nil {
		return fmt.Errorf("restore record: %w", err)
	}
	return requireRowAffected(res)
}

func (r *Repository) GetRecord(ctx context.Context, recordID string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, recordID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// ListRecords returns live records matching the filter, oldest first.
// Soft-deleted rows never leave this query, so statistics inputs arrive
// pre-filtered.
func (r *Repository) ListRecords(ctx context.Context, f ledger.RecordFilter) ([]core.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE deleted = 0`
	var args []any
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, f.To.UTC())
	}
	if f.Instrument != "" {
		query += ` AND (kind != 'trade' OR instrument = ?)`
		args = append(args, string(f.Instrument))
	}
	query += ` ORDER BY date ASC, id ASC`

	return r.queryRecords(ctx, query, args...)
}

func (r *Repository) ListArchive(ctx context.Context) ([]core.Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM records WHERE deleted = 1 ORDER BY deleted_at DESC, id ASC`)
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// CreateAccount implements ledger.AccountStore.
func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}

	if a.ID == "" {
		a.ID = id.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, initial_balance, currency, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.InitialBalance, a.Currency, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert account: %w", err)
	}

	r.log.InfoContext(ctx, "Account created", "id", a.ID, "name", a.Name, "initial_balance", a.InitialBalance)
	return a.ID, nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, initial_balance, currency, created_at FROM accounts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.InitialBalance, &a.Currency, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

// InitialBalance sums every account baseline; it is the aggregator's
// second input.
func (r *Repository) InitialBalance(ctx context.Context) (float64, error) {
	var sum float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(initial_balance), 0) FROM accounts`).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum initial balances: %w", err)
	}
	return sum, nil
}

// CreateMood implements ledger.MoodStore.
func (r *Repository) CreateMood(ctx context.Context, e core.MoodEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID = id.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mood_entries (id, date, mood, score, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.UTC(), string(e.Mood), e.Mood.Score(), e.Note, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert mood entry: %w", err)
	}
	return e.ID, nil
}

func (r *Repository) ListMoods(ctx context.Context, from, to time.Time) ([]core.MoodEntry, error) {
	query := `SELECT id, date, mood, score, note, created_at FROM mood_entries WHERE deleted = 0`
	var args []any
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mood entries: %w", err)
	}
	defer rows.Close()

	var out []core.MoodEntry
	for rows.Next() {
		var e core.MoodEntry
		var mood string
		if err := rows.Scan(&e.ID, &e.Date, &mood, &e.Score, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood entry: %w", err)
		}
		e.Mood = core.Mood(mood)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mood entries: %w", err)
	}
	return out, nil
}

func (r *Repository) DeleteMood(ctx context.Context, moodID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE mood_entries SET deleted = 1 WHERE id = ? AND deleted = 0`, moodID)
	if err != nil {
		return fmt.Errorf("delete mood entry: %w", err)
	}
	return requireRowAffected(res)
}

// RecordVersion reports the current version of a record, counting
// soft-deleted rows too. The mirror queue carries it for tracing.
func (r *Repository) RecordVersion(ctx context.Context, recordID string) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM records WHERE id = ?`, recordID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledger.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get record version: %w", err)
	}
	return version, nil
}

// PendingSyncRecord is the minimal payload the mirror queue carries; the
// worker fetches the full row by ID when it processes the message.
type PendingSyncRecord struct {
	ID      string
	Version int64
	Deleted bool
}

// PendingSyncRecords returns rows the mirror has not applied yet, oldest
// first, excluding rows already marked as failing.
func (r *Repository) PendingSyncRecords(ctx context.Context, limit int) ([]PendingSyncRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, deleted FROM records
		WHERE synced = 0 AND sync_error = 0
		ORDER BY id ASC
		LIMIT ?`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("query pending sync records: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncRecord
	for rows.Next() {
		var p PendingSyncRecord
		if err := rows.Scan(&p.ID, &p.Version, &p.Deleted); err != nil {
			return nil, fmt.Errorf("scan pending sync record: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sync records: %w", err)
	}
	return out, nil
}

func (r *Repository) MarkSynced(ctx context.Context, recordID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET synced = 1, sync_error = 0 WHERE id = ?`, recordID); err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}
	r.log.InfoContext(ctx, "Record marked as synced", "id", recordID)
	return nil
}

func (r *Repository) MarkSyncError(ctx context.Context, recordID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET sync_error = 1 WHERE id = ?`, recordID); err != nil {
		return fmt.Errorf("mark record sync error: %w", err)
	}
	r.log.WarnContext(ctx, "Record marked with sync error", "id", recordID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.Record, error) {
	var (
		rec                    core.Record
		kind, side, instrument string
		deleted                int64
		deletedAt              sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &kind, &rec.Date, &rec.Symbol, &side,
		&rec.Qty, &rec.Price, &rec.ProfitLoss, &instrument,
		&rec.Description, &rec.Screenshot, &deleted, &deletedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return core.Record{}, err
	}
	rec.Kind = core.Kind(kind)
	rec.Side = core.Side(side)
	rec.Instrument = core.Instrument(instrument)
	rec.Deleted = deleted != 0
	if deletedAt.Valid {
		rec.DeletedAt = deletedAt.Time
	}
	return rec, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
