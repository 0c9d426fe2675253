// Package filestore implements the Checkpoint Storage component
// (spec.md §4.H) on a local directory: one JSON file per checkpoint,
// atomic temp-file-then-rename writes, and a storage-wide mutex
// serializing every operation.
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
)

const fileSuffix = ".checkpoint.json"

// Store persists checkpoints as files under dir.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New constructs a Store rooted at dir. The directory is created lazily
// on first Save, not here, matching spec.md §4.H "missing storage
// directories are created on first save."
func New(dir string) *Store {
	return &Store{dir: dir}
}

type document struct {
	Metadata checkpoint.Metadata      `json:"metadata"`
	State    checkpoint.PipelineState `json:"state"`
	Binary   []byte                   `json:"binary_data,omitempty"`
}

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.dir, id+fileSuffix)
}

// Save writes cp to disk, creating the storage directory if needed and
// writing via a temp-file-then-rename so a crash mid-write never leaves
// a torn file in place.
func (s *Store) Save(ctx context.Context, cp checkpoint.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domainerrors.NewStorage("failed to create checkpoint directory", err)
	}

	data, err := json.MarshalIndent(document{Metadata: cp.Metadata, State: cp.State, Binary: cp.BinaryData}, "", "  ")
	if err != nil {
		return domainerrors.NewStorage("failed to marshal checkpoint", err)
	}

	path := s.pathFor(cp.Metadata.CheckpointID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return domainerrors.NewStorage("failed to write checkpoint file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return domainerrors.NewStorage("failed to rename checkpoint file", err)
	}
	return nil
}

// Load reads a checkpoint by id.
func (s *Store) Load(ctx context.Context, id string) (checkpoint.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(id)
}

func (s *Store) loadLocked(id string) (checkpoint.Checkpoint, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return checkpoint.Checkpoint{}, domainerrors.NewNotFound("checkpoint not found", map[string]interface{}{"checkpoint_id": id})
		}
		return checkpoint.Checkpoint{}, domainerrors.NewStorage("failed to read checkpoint file", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return checkpoint.Checkpoint{}, domainerrors.NewStorage("failed to parse checkpoint file", err)
	}
	return checkpoint.Checkpoint{Metadata: doc.Metadata, State: doc.State, BinaryData: doc.Binary}, nil
}

// List returns every checkpoint id for operationID (or all ids when
// operationID is ""), sorted by creation timestamp descending.
func (s *Store) List(ctx context.Context, operationID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domainerrors.NewStorage("failed to list checkpoint directory", err)
	}

	type idAt struct {
		id string
		md checkpoint.Metadata
	}
	var matches []idAt
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), fileSuffix)
		cp, err := s.loadLocked(id)
		if err != nil {
			continue
		}
		if operationID != "" && cp.Metadata.OperationID != operationID {
			continue
		}
		matches = append(matches, idAt{id: id, md: cp.Metadata})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].md.CreatedAt.After(matches[j].md.CreatedAt)
	})

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids, nil
}

// Delete removes a checkpoint file.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.pathFor(id)); err != nil {
		if os.IsNotExist(err) {
			return domainerrors.NewNotFound("checkpoint not found", map[string]interface{}{"checkpoint_id": id})
		}
		return domainerrors.NewStorage("failed to delete checkpoint file", err)
	}
	return nil
}

// GetMetadata reads only the metadata portion of a checkpoint.
func (s *Store) GetMetadata(ctx context.Context, id string) (checkpoint.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := s.loadLocked(id)
	if err != nil {
		return checkpoint.Metadata{}, err
	}
	return cp.Metadata, nil
}
