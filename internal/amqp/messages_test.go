package amqp

import (
	"testing"
	"time"
)

func TestNewSnapshotSyncMessage(t *testing.T) {
	msg := NewSnapshotSyncMessage("abc-123", "Household")

	if msg.ID != "abc-123" {
		t.Errorf("ID = %q, want abc-123", msg.ID)
	}
	if msg.BudgetName != "Household" {
		t.Errorf("BudgetName = %q, want Household", msg.BudgetName)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestSnapshotSyncMessageJSON(t *testing.T) {
	msg := &SnapshotSyncMessage{
		ID:         "abc-123",
		BudgetName: "Household",
		Timestamp:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := SnapshotSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("SnapshotSyncMessageFromJSON() error = %v", err)
	}

	if parsed.ID != msg.ID {
		t.Errorf("ID = %q, want %q", parsed.ID, msg.ID)
	}
	if parsed.BudgetName != msg.BudgetName {
		t.Errorf("BudgetName = %q, want %q", parsed.BudgetName, msg.BudgetName)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestSnapshotSyncMessageInvalidJSON(t *testing.T) {
	if _, err := SnapshotSyncMessageFromJSON([]byte(`{"id": 42}`)); err == nil {
		t.Error("expected error for mistyped id field")
	}
}
