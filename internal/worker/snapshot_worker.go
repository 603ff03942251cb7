package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/archive"
)

// SnapshotSource is the slice of the archive the worker reads from.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, id string) (archive.Snapshot, error)
	PendingSnapshots(ctx context.Context, limit int) ([]archive.Snapshot, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string, cause error) error
}

// Exporter pushes a snapshot to the downstream spreadsheet.
type Exporter interface {
	ExportSnapshot(ctx context.Context, snap archive.Snapshot) error
}

// SyncWorker exports saved budget snapshots to Google Sheets
type SyncWorker struct {
	source    SnapshotSource
	exporter  Exporter
	batchSize int
}

func NewSyncWorker(source SnapshotSource, exporter Exporter, batchSize int) *SyncWorker {
	return &SyncWorker{
		source:    source,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single snapshot sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SnapshotSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"budget", msg.BudgetName)

	snap, err := w.source.GetSnapshot(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get snapshot from archive: %w", err)
	}

	return w.exportSnapshot(ctx, snap)
}

// ProcessPending exports snapshots that have not been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.source.PendingSnapshots(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending snapshots: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending snapshots", "count", len(pending))

	for _, snap := range pending {
		if err := w.exportSnapshot(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to export snapshot", "id", snap.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck exports any snapshots left pending before the worker
// started, with a larger batch than the periodic rescan.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.source.PendingSnapshots(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending snapshots for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending snapshots found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending snapshots on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, snap := range pending {
		if err := w.exportSnapshot(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to export snapshot during startup",
				"id", snap.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) exportSnapshot(ctx context.Context, snap archive.Snapshot) error {
	if err := w.exporter.ExportSnapshot(ctx, snap); err != nil {
		if markErr := w.source.MarkSyncError(ctx, snap.ID, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", snap.ID, "error", markErr)
		}
		return fmt.Errorf("export snapshot: %w", err)
	}

	if err := w.source.MarkSynced(ctx, snap.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", snap.ID, "error", err)
		// The export itself worked, do not fail the message.
	}

	slog.InfoContext(ctx, "Successfully exported snapshot",
		"id", snap.ID,
		"budget", snap.BudgetName)

	return nil
}
