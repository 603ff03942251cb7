package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"bilancio/internal/archive"
)

// SyncPublisher announces saved snapshots to the export worker.
type SyncPublisher interface {
	PublishSnapshotSync(ctx context.Context, id, budgetName string) error
}

// SnapshotService orchestrates snapshot saves across the archive store and AMQP
type SnapshotService struct {
	store     archive.Store
	publisher SyncPublisher
}

func NewSnapshotService(store archive.Store, publisher SyncPublisher) *SnapshotService {
	return &SnapshotService{
		store:     store,
		publisher: publisher,
	}
}

// SaveSnapshot persists the document locally and publishes a sync message.
// A publish failure never fails the save; the worker's periodic rescan picks
// the snapshot up later.
func (s *SnapshotService) SaveSnapshot(ctx context.Context, budgetName string, document []byte) (string, error) {
	id, err := s.store.SaveSnapshot(ctx, budgetName, document)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	if err := s.publishSyncMessage(ctx, id, budgetName); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}

	return id, nil
}

func (s *SnapshotService) GetSnapshot(ctx context.Context, id string) (archive.Snapshot, error) {
	return s.store.GetSnapshot(ctx, id)
}

func (s *SnapshotService) ListSnapshots(ctx context.Context, limit int) ([]archive.Snapshot, error) {
	return s.store.ListSnapshots(ctx, limit)
}

func (s *SnapshotService) publishSyncMessage(ctx context.Context, id, budgetName string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.publisher.PublishSnapshotSync(ctx, id, budgetName)
}

// Close closes the store and publisher where they support it
func (s *SnapshotService) Close() error {
	var errs []error

	if closer, ok := s.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if closer, ok := s.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close snapshot service: %v", errs)
	}

	return nil
}
