// Package memstore is an in-memory ports.CheckpointBackend used by
// tests and examples that don't need real persistence.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
)

// Store holds checkpoints in a mutex-guarded map.
type Store struct {
	mu          sync.Mutex
	checkpoints map[string]checkpoint.Checkpoint
}

// New returns an empty Store.
func New() *Store {
	return &Store{checkpoints: make(map[string]checkpoint.Checkpoint)}
}

// Save stores a deep-enough copy of cp.
func (s *Store) Save(ctx context.Context, cp checkpoint.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cp
	clone.BinaryData = append([]byte(nil), cp.BinaryData...)
	s.checkpoints[cp.Metadata.CheckpointID] = clone
	return nil
}

// Load retrieves a checkpoint by id.
func (s *Store) Load(ctx context.Context, id string) (checkpoint.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[id]
	if !ok {
		return checkpoint.Checkpoint{}, domainerrors.NewNotFound("checkpoint not found", map[string]interface{}{"checkpoint_id": id})
	}
	return cp, nil
}

// List returns ids for operationID (or every id when operationID is
// ""), newest first.
func (s *Store) List(ctx context.Context, operationID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []checkpoint.Checkpoint
	for _, cp := range s.checkpoints {
		if operationID == "" || cp.Metadata.OperationID == operationID {
			matches = append(matches, cp)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Metadata.CreatedAt.After(matches[j].Metadata.CreatedAt)
	})
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Metadata.CheckpointID
	}
	return ids, nil
}

// Delete removes a checkpoint by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checkpoints[id]; !ok {
		return domainerrors.NewNotFound("checkpoint not found", map[string]interface{}{"checkpoint_id": id})
	}
	delete(s.checkpoints, id)
	return nil
}

// GetMetadata returns a checkpoint's metadata only.
func (s *Store) GetMetadata(ctx context.Context, id string) (checkpoint.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[id]
	if !ok {
		return checkpoint.Metadata{}, domainerrors.NewNotFound("checkpoint not found", map[string]interface{}{"checkpoint_id": id})
	}
	return cp.Metadata, nil
}
