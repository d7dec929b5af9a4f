// Package services orchestrates journal writes across SQLite and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"tradebook/internal/amqp"
	"tradebook/internal/core"
	applog "tradebook/internal/log"
	"tradebook/internal/storage"
)

// RecordService persists records locally first, then publishes a sync
// message for the mirror worker. Publishing is best effort: a broker
// outage never fails the request, the worker catches up from the
// pending-sync queue.
type RecordService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
	log        *slog.Logger
}

func NewRecordService(storage *storage.Repository, amqpClient *amqp.Client) *RecordService {
	return &RecordService{
		storage:    storage,
		amqpClient: amqpClient,
		log:        applog.ForComponent(applog.ComponentLedger),
	}
}

func (s *RecordService) CreateRecord(ctx context.Context, r core.Record) (string, error) {
	recordID, err := s.storage.CreateRecord(ctx, r)
	if err != nil {
		return "", fmt.Errorf("save record: %w", err)
	}

	if err := s.publishSync(ctx, recordID, 1); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish sync message",
			"id", recordID, "error", err)
	}

	return recordID, nil
}

func (s *RecordService) UpdateRecord(ctx context.Context, r core.Record) error {
	if err := s.storage.UpdateRecord(ctx, r); err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	if err := s.publishSync(ctx, r.ID, s.versionOf(ctx, r.ID)); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish sync message",
			"id", r.ID, "error", err)
	}

	return nil
}

func (s *RecordService) DeleteRecord(ctx context.Context, recordID string) error {
	if err := s.storage.DeleteRecord(ctx, recordID); err != nil {
		return fmt.Errorf("soft delete record: %w", err)
	}

	if err := s.publishDelete(ctx, recordID, s.versionOf(ctx, recordID)); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish delete message",
			"id", recordID, "error", err)
	}

	return nil
}

func (s *RecordService) RestoreRecord(ctx context.Context, recordID string) error {
	if err := s.storage.RestoreRecord(ctx, recordID); err != nil {
		return fmt.Errorf("restore record: %w", err)
	}

	if err := s.publishSync(ctx, recordID, s.versionOf(ctx, recordID)); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish sync message",
			"id", recordID, "error", err)
	}

	return nil
}

func (s *RecordService) versionOf(ctx context.Context, recordID string) int64 {
	version, err := s.storage.RecordVersion(ctx, recordID)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to read record version", "id", recordID, "error", err)
		return 0
	}
	return version
}

func (s *RecordService) publishSync(ctx context.Context, recordID string, version int64) error {
	if s.amqpClient == nil {
		s.log.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishRecordSync(ctx, recordID, version)
}

func (s *RecordService) publishDelete(ctx context.Context, recordID string, version int64) error {
	if s.amqpClient == nil {
		s.log.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishRecordDelete(ctx, recordID, version)
}

// Close closes both storage and AMQP connections.
func (s *RecordService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close record service: %v", errs)
	}

	return nil
}
