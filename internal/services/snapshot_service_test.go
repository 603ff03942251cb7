package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/archive/memory"
)

type fakePublisher struct {
	published []string
	err       error
}

func (p *fakePublisher) PublishSnapshotSync(_ context.Context, id, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, id)
	return nil
}

func TestSaveSnapshotPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewSnapshotService(memory.New(), pub)

	id, err := svc.SaveSnapshot(context.Background(), "Household", []byte(`{}`))
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != id {
		t.Errorf("published = %v, want [%s]", pub.published, id)
	}
}

func TestSaveSnapshotSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewSnapshotService(memory.New(), pub)

	id, err := svc.SaveSnapshot(context.Background(), "Household", []byte(`{}`))
	if err != nil {
		t.Fatalf("SaveSnapshot should not fail on publish error: %v", err)
	}

	snap, err := svc.GetSnapshot(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.BudgetName != "Household" {
		t.Errorf("BudgetName = %q, want Household", snap.BudgetName)
	}
}

func TestSaveSnapshotWithoutPublisher(t *testing.T) {
	svc := NewSnapshotService(memory.New(), nil)

	if _, err := svc.SaveSnapshot(context.Background(), "Household", []byte(`{}`)); err != nil {
		t.Fatalf("SaveSnapshot without publisher: %v", err)
	}
}

func TestSaveSnapshotStoreError(t *testing.T) {
	svc := NewSnapshotService(memory.New(), &fakePublisher{})

	if _, err := svc.SaveSnapshot(context.Background(), "", []byte(`{}`)); err == nil {
		t.Error("expected error from store for empty budget name")
	}
}
