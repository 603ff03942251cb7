package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bilancio/internal/archive"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := []byte(`{"name":"Household","starting balance":1000}`)
	id, err := repo.SaveSnapshot(ctx, "Household", doc)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snap, err := repo.GetSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.BudgetName != "Household" {
		t.Errorf("BudgetName = %q, want Household", snap.BudgetName)
	}
	if string(snap.Document) != string(doc) {
		t.Errorf("Document = %s, want %s", snap.Document, doc)
	}
	if snap.SyncStatus != archive.SyncPending {
		t.Errorf("SyncStatus = %q, want pending", snap.SyncStatus)
	}
}

func TestGetSnapshotUnknownID(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetSnapshot(context.Background(), "missing")
	if !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("GetSnapshot = %v, want ErrNotFound", err)
	}
}

func TestPendingAndMarkSynced(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.SaveSnapshot(ctx, "Household", []byte(`{}`))
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	pending, err := repo.PendingSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSnapshots: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("pending = %+v, want snapshot %s", pending, id)
	}

	if err := repo.MarkSynced(ctx, id); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	snap, err := repo.GetSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.SyncStatus != archive.SyncDone || snap.SyncedAt == nil {
		t.Errorf("snapshot not marked synced: %+v", snap)
	}

	pending, err = repo.PendingSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSnapshots: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}

func TestMarkSyncError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.SaveSnapshot(ctx, "Household", []byte(`{}`))
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	if err := repo.MarkSyncError(ctx, id, errors.New("export failed")); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}

	snap, err := repo.GetSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.SyncStatus != archive.SyncError {
		t.Errorf("SyncStatus = %q, want error", snap.SyncStatus)
	}
	if snap.SyncErr != "export failed" {
		t.Errorf("SyncErr = %q, want export failed", snap.SyncErr)
	}

	if err := repo.MarkSyncError(ctx, "missing", errors.New("x")); !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("MarkSyncError on unknown id = %v, want ErrNotFound", err)
	}
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.SaveSnapshot(ctx, "A", []byte(`{}`)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if _, err := repo.SaveSnapshot(ctx, "B", []byte(`{}`)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snaps, err := repo.ListSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len = %d, want 2", len(snaps))
	}
}
