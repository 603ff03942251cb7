package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotSyncMessage tells the worker a snapshot is ready for export.
// Carries only the id, the worker fetches the full document from the archive.
type SnapshotSyncMessage struct {
	ID         string    `json:"id"`
	BudgetName string    `json:"budget_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSnapshotSyncMessage creates a sync message for the given snapshot
func NewSnapshotSyncMessage(id, budgetName string) *SnapshotSyncMessage {
	return &SnapshotSyncMessage{
		ID:         id,
		BudgetName: budgetName,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotSyncMessageFromJSON creates a message from JSON bytes
func SnapshotSyncMessageFromJSON(data []byte) (*SnapshotSyncMessage, error) {
	var msg SnapshotSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
