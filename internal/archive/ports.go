package archive

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a snapshot id is unknown to the store.
var ErrNotFound = errors.New("snapshot not found")

// SyncStatus tracks whether a snapshot has been exported downstream.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncDone    SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// Snapshot is a saved budget document together with its archive bookkeeping.
type Snapshot struct {
	ID         string
	BudgetName string
	Document   []byte
	CreatedAt  time.Time
	SyncStatus SyncStatus
	SyncedAt   *time.Time
	SyncErr    string
}

// Store persists budget snapshots.
type Store interface {
	// SaveSnapshot stores the document and returns the snapshot id.
	SaveSnapshot(ctx context.Context, budgetName string, document []byte) (string, error)

	// GetSnapshot returns the snapshot with the given id.
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)

	// ListSnapshots returns snapshots ordered most recent first.
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
}

// SyncTracker is implemented by stores that track downstream export state.
type SyncTracker interface {
	// PendingSnapshots returns up to limit snapshots awaiting export.
	PendingSnapshots(ctx context.Context, limit int) ([]Snapshot, error)

	// MarkSynced records a successful export.
	MarkSynced(ctx context.Context, id string) error

	// MarkSyncError records a failed export attempt.
	MarkSyncError(ctx context.Context, id string, cause error) error
}
