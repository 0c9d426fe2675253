package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
)

func TestSaveLoadDelete(t *testing.T) {
	s := New()
	cp := checkpoint.Checkpoint{Metadata: checkpoint.Metadata{
		CheckpointID: "c1", OperationID: "op1", CreatedAt: time.Now(), Granularity: checkpoint.GranularityFine,
	}}

	if err := s.Save(context.Background(), cp); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := s.Load(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Metadata.Granularity != checkpoint.GranularityFine {
		t.Fatalf("expected fine granularity, got %v", loaded.Metadata.Granularity)
	}

	if err := s.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(context.Background(), "c1"); err == nil {
		t.Fatal("expected Load to fail after Delete")
	}
}

func TestListFiltersByOperation(t *testing.T) {
	s := New()
	now := time.Now()
	_ = s.Save(context.Background(), checkpoint.Checkpoint{Metadata: checkpoint.Metadata{CheckpointID: "a", OperationID: "op1", CreatedAt: now}})
	_ = s.Save(context.Background(), checkpoint.Checkpoint{Metadata: checkpoint.Metadata{CheckpointID: "b", OperationID: "op2", CreatedAt: now}})

	ids, err := s.List(context.Background(), "op1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("expected [a], got %v", ids)
	}
}
