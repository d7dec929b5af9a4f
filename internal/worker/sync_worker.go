// Package worker mirrors journal records from SQLite to the off-site
// copy (Google Sheets). It consumes AMQP sync messages and sweeps the
// pending-sync queue to recover from lost messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tradebook/internal/amqp"
	"tradebook/internal/core"
	"tradebook/internal/ledger"
	applog "tradebook/internal/log"
	"tradebook/internal/storage"
)

type SyncWorker struct {
	storage   *storage.Repository
	mirror    ledger.RecordMirror
	batchSize int
	log       *slog.Logger
}

func NewSyncWorker(storage *storage.Repository, mirror ledger.RecordMirror, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
		log:       applog.ForComponent(applog.ComponentWorker),
	}
}

// HandleSyncMessage processes one message from the broker. The message
// only carries an ID; the record itself comes from SQLite, so the mirror
// always sees the latest version no matter how stale the message is.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	w.log.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version,
		"deleted", msg.Deleted)

	if w.mirror == nil {
		w.log.WarnContext(ctx, "No record mirror configured, skipping", "id", msg.ID)
		return nil
	}

	record, err := w.storage.GetRecord(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}

	// The soft-delete flag on the row wins over the message flag: an
	// update message for a record deleted in the meantime must not
	// resurrect it on the sheet.
	if msg.Deleted || record.Deleted {
		return w.removeFromMirror(ctx, record)
	}
	return w.syncToMirror(ctx, record)
}

// ProcessPendingRecords sweeps records the mirror has not seen yet.
// Backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPendingRecords(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger pending batch once at worker startup
// to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) error {
	if w.mirror == nil {
		return nil
	}

	pending, err := w.storage.PendingSyncRecords(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending sync records: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.log.InfoContext(ctx, "Processing pending records", "count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		record, err := w.storage.GetRecord(ctx, p.ID)
		if err != nil {
			w.log.ErrorContext(ctx, "Failed to get pending record", "id", p.ID, "error", err)
			w.markSyncError(ctx, p.ID)
			failed++
			continue
		}

		if record.Deleted {
			err = w.removeFromMirror(ctx, record)
		} else {
			err = w.syncToMirror(ctx, record)
		}
		if err != nil {
			w.log.ErrorContext(ctx, "Failed to sync pending record", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	w.log.InfoContext(ctx, "Pending sync sweep completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

func (w *SyncWorker) syncToMirror(ctx context.Context, record core.Record) error {
	rowRef, err := w.mirror.AppendRecord(ctx, record)
	if err != nil {
		w.markSyncError(ctx, record.ID)
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, record.ID); err != nil {
		// The mirror write already landed, do not fail the message.
		w.log.ErrorContext(ctx, "Failed to mark as synced", "id", record.ID, "error", err)
	}

	w.log.InfoContext(ctx, "Record mirrored",
		"id", record.ID,
		"row_ref", rowRef,
		"kind", record.Kind,
		"symbol", record.Symbol)

	return nil
}

func (w *SyncWorker) removeFromMirror(ctx context.Context, record core.Record) error {
	if err := w.mirror.RemoveRecord(ctx, record); err != nil {
		w.markSyncError(ctx, record.ID)
		return fmt.Errorf("remove from mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, record.ID); err != nil {
		w.log.ErrorContext(ctx, "Failed to mark as synced", "id", record.ID, "error", err)
	}

	w.log.InfoContext(ctx, "Record removed from mirror", "id", record.ID)
	return nil
}

func (w *SyncWorker) markSyncError(ctx context.Context, recordID string) {
	if err := w.storage.MarkSyncError(ctx, recordID); err != nil {
		w.log.ErrorContext(ctx, "Failed to mark sync error", "id", recordID, "error", err)
	}
}
