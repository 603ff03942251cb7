package worker

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/amqp"
	"bilancio/internal/archive"
	"bilancio/internal/archive/memory"
)

type fakeExporter struct {
	exported []string
	err      error
}

func (e *fakeExporter) ExportSnapshot(_ context.Context, snap archive.Snapshot) error {
	if e.err != nil {
		return e.err
	}
	e.exported = append(e.exported, snap.ID)
	return nil
}

func TestHandleSyncMessage(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	id, _ := store.SaveSnapshot(ctx, "Household", []byte(`{}`))

	exporter := &fakeExporter{}
	w := NewSyncWorker(store, exporter, 10)

	msg := &amqp.SnapshotSyncMessage{ID: id, BudgetName: "Household"}
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	if len(exporter.exported) != 1 || exporter.exported[0] != id {
		t.Errorf("exported = %v, want [%s]", exporter.exported, id)
	}

	snap, _ := store.GetSnapshot(ctx, id)
	if snap.SyncStatus != archive.SyncDone {
		t.Errorf("SyncStatus = %q, want synced", snap.SyncStatus)
	}
}

func TestHandleSyncMessageUnknownSnapshot(t *testing.T) {
	w := NewSyncWorker(memory.New(), &fakeExporter{}, 10)

	msg := &amqp.SnapshotSyncMessage{ID: "missing"}
	if err := w.HandleSyncMessage(context.Background(), msg); !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("HandleSyncMessage = %v, want ErrNotFound", err)
	}
}

func TestExportFailureMarksError(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	id, _ := store.SaveSnapshot(ctx, "Household", []byte(`{}`))

	exporter := &fakeExporter{err: errors.New("quota exceeded")}
	w := NewSyncWorker(store, exporter, 10)

	msg := &amqp.SnapshotSyncMessage{ID: id, BudgetName: "Household"}
	if err := w.HandleSyncMessage(ctx, msg); err == nil {
		t.Fatal("HandleSyncMessage should fail when export fails")
	}

	snap, _ := store.GetSnapshot(ctx, id)
	if snap.SyncStatus != archive.SyncError {
		t.Errorf("SyncStatus = %q, want error", snap.SyncStatus)
	}
	if snap.SyncErr != "quota exceeded" {
		t.Errorf("SyncErr = %q, want quota exceeded", snap.SyncErr)
	}
}

func TestProcessPending(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first, _ := store.SaveSnapshot(ctx, "A", []byte(`{}`))
	second, _ := store.SaveSnapshot(ctx, "B", []byte(`{}`))

	exporter := &fakeExporter{}
	w := NewSyncWorker(store, exporter, 10)

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(exporter.exported) != 2 {
		t.Fatalf("exported %d snapshots, want 2", len(exporter.exported))
	}

	for _, id := range []string{first, second} {
		snap, _ := store.GetSnapshot(ctx, id)
		if snap.SyncStatus != archive.SyncDone {
			t.Errorf("snapshot %s status = %q, want synced", id, snap.SyncStatus)
		}
	}

	// A second pass finds nothing to do.
	exporter.exported = nil
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(exporter.exported) != 0 {
		t.Errorf("exported = %v, want none on second pass", exporter.exported)
	}
}

func TestStartupSyncCheckContinuesPastFailures(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	store.SaveSnapshot(ctx, "A", []byte(`{}`))
	store.SaveSnapshot(ctx, "B", []byte(`{}`))

	exporter := &fakeExporter{err: errors.New("export failed")}
	w := NewSyncWorker(store, exporter, 10)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck should not fail on per-snapshot errors: %v", err)
	}

	pending, _ := store.PendingSnapshots(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0 (all marked with error)", len(pending))
	}
}
