package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/archive"
)

// Store keeps snapshots in memory. Used for development and tests.
type Store struct {
	mu    sync.Mutex
	items []archive.Snapshot
}

func New() *Store {
	return &Store{}
}

func (s *Store) SaveSnapshot(_ context.Context, budgetName string, document []byte) (string, error) {
	if budgetName == "" {
		return "", fmt.Errorf("budget name cannot be empty")
	}
	if len(document) == 0 {
		return "", fmt.Errorf("document cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := archive.Snapshot{
		ID:         uuid.NewString(),
		BudgetName: budgetName,
		Document:   append([]byte(nil), document...),
		CreatedAt:  time.Now().UTC(),
		SyncStatus: archive.SyncPending,
	}
	s.items = append(s.items, snap)
	return snap.ID, nil
}

func (s *Store) GetSnapshot(_ context.Context, id string) (archive.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range s.items {
		if snap.ID == id {
			return snap, nil
		}
	}
	return archive.Snapshot{}, archive.ErrNotFound
}

func (s *Store) ListSnapshots(_ context.Context, limit int) ([]archive.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]archive.Snapshot, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.items[i])
	}
	return out, nil
}

func (s *Store) PendingSnapshots(_ context.Context, limit int) ([]archive.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []archive.Snapshot
	for _, snap := range s.items {
		if snap.SyncStatus != archive.SyncPending {
			continue
		}
		out = append(out, snap)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			now := time.Now().UTC()
			s.items[i].SyncStatus = archive.SyncDone
			s.items[i].SyncedAt = &now
			s.items[i].SyncErr = ""
			return nil
		}
	}
	return archive.ErrNotFound
}

func (s *Store) MarkSyncError(_ context.Context, id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].SyncStatus = archive.SyncError
			s.items[i].SyncErr = cause.Error()
			return nil
		}
	}
	return archive.ErrNotFound
}
