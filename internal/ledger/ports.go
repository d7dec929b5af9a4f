// Package ledger defines the outbound ports the HTTP layer and the mirror
// worker depend on. Backends (SQLite, in-memory) and the Google Sheets
// mirror implement these.
package ledger

import (
	"context"
	"errors"
	"time"

	"tradebook/internal/core"
)

// ErrNotFound is returned when a record, account, or mood entry does not
// exist or has been soft-deleted out of view.
var ErrNotFound = errors.New("not found")

// RecordFilter narrows record listings. Zero values mean "no bound".
type RecordFilter struct {
	From       time.Time
	To         time.Time
	Instrument core.Instrument
}

type (
	// RecordWriter mutates the ledger. Deletes are soft: rows stay in the
	// archive until restored.
	RecordWriter interface {
		CreateRecord(ctx context.Context, r core.Record) (string, error)
		UpdateRecord(ctx context.Context, r core.Record) error
		DeleteRecord(ctx context.Context, id string) error
		RestoreRecord(ctx context.Context, id string) error
	}

	// RecordReader reads the ledger. ListRecords never returns
	// soft-deleted rows; statistics inputs come pre-filtered from here.
	RecordReader interface {
		GetRecord(ctx context.Context, id string) (core.Record, error)
		ListRecords(ctx context.Context, f RecordFilter) ([]core.Record, error)
		ListArchive(ctx context.Context) ([]core.Record, error)
	}

	// AccountStore manages funded accounts. InitialBalance is the sum of
	// every account's baseline, the aggregator's second input.
	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) (string, error)
		ListAccounts(ctx context.Context) ([]core.Account, error)
		InitialBalance(ctx context.Context) (float64, error)
	}

	// MoodStore manages mood entries.
	MoodStore interface {
		CreateMood(ctx context.Context, e core.MoodEntry) (string, error)
		ListMoods(ctx context.Context, from, to time.Time) ([]core.MoodEntry, error)
		DeleteMood(ctx context.Context, id string) error
	}

	// RecordMirror is the off-site copy of the journal (Google Sheets).
	// AppendRecord returns an opaque row reference for logging.
	RecordMirror interface {
		AppendRecord(ctx context.Context, r core.Record) (rowRef string, err error)
		RemoveRecord(ctx context.Context, r core.Record) error
	}
)
