package amqp

import (
	"encoding/json"
	"time"
)

// SyncMessage tells the mirror worker that a journal record changed.
// It carries only the ID and version; the worker fetches the full record
// from the database before touching the sheet. Deleted marks removals so
// the mirror drops the row instead of appending it.
type SyncMessage struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Deleted   bool      `json:"deleted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(id string, version int64) *SyncMessage {
	return &SyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewRecordDeleteMessage(id string, version int64) *SyncMessage {
	return &SyncMessage{
		ID:        id,
		Version:   version,
		Deleted:   true,
		Timestamp: time.Now(),
	}
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
