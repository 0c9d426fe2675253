// Package gitstore is a Checkpoint Storage backend (spec.md §4.H) that
// commits every checkpoint write to a local git repository, giving
// operators a full audit history of checkpoint evolution (who/when a
// checkpoint changed) on top of the same file-per-checkpoint layout
// filestore uses.
package gitstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
)

const fileSuffix = ".checkpoint.json"

// Store persists checkpoints as committed files in a git working tree.
type Store struct {
	mu     sync.Mutex
	dir    string
	repo   *git.Repository
	author object.Signature
}

// New opens (or initializes) a git repository at dir and returns a
// Store backed by it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domainerrors.NewStorage("failed to create checkpoint repository directory", err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		repo, err = git.PlainInit(dir, false)
		if err != nil {
			return nil, domainerrors.NewStorage("failed to initialize checkpoint repository", err)
		}
	}

	return &Store{
		dir:  dir,
		repo: repo,
		author: object.Signature{
			Name:  "reconctl",
			Email: "reconctl@localhost",
		},
	}, nil
}

type document struct {
	Metadata checkpoint.Metadata      `json:"metadata"`
	State    checkpoint.PipelineState `json:"state"`
	Binary   []byte                   `json:"binary_data,omitempty"`
}

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.dir, id+fileSuffix)
}

// Save writes cp's file and commits it, recording an audit trail entry
// for this checkpoint's lifecycle.
func (s *Store) Save(ctx context.Context, cp checkpoint.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(document{Metadata: cp.Metadata, State: cp.State, Binary: cp.BinaryData}, "", "  ")
	if err != nil {
		return domainerrors.NewStorage("failed to marshal checkpoint", err)
	}

	name := cp.Metadata.CheckpointID + fileSuffix
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return domainerrors.NewStorage("failed to write checkpoint file", err)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return domainerrors.NewStorage("failed to open checkpoint repository worktree", err)
	}
	if _, err := wt.Add(name); err != nil {
		return domainerrors.NewStorage("failed to stage checkpoint file", err)
	}

	sig := s.author
	sig.When = time.Now()
	_, err = wt.Commit("checkpoint "+cp.Metadata.CheckpointID+" ("+cp.Metadata.StageName+")", &git.CommitOptions{
		Author:            &sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return domainerrors.NewStorage("failed to commit checkpoint", err)
	}
	return nil
}

// Load reads the current version of a checkpoint file.
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

// List returns checkpoint ids for operationID (or all), newest first.
func (s *Store) List(ctx context.Context, operationID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domainerrors.NewStorage("failed to list checkpoint directory", err)
	}

	type idAt struct {
		id string
		at time.Time
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
		matches = append(matches, idAt{id: id, at: cp.Metadata.CreatedAt})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].at.After(matches[j].at) })

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids, nil
}

// Delete removes a checkpoint file and commits the removal, so the
// deletion itself is part of the audit history rather than silently
// erasing it.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := id + fileSuffix
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return domainerrors.NewNotFound("checkpoint not found", map[string]interface{}{"checkpoint_id": id})
		}
		return domainerrors.NewStorage("failed to stat checkpoint file", err)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return domainerrors.NewStorage("failed to open checkpoint repository worktree", err)
	}
	if _, err := wt.Remove(name); err != nil {
		return domainerrors.NewStorage("failed to stage checkpoint removal", err)
	}

	sig := s.author
	sig.When = time.Now()
	_, err = wt.Commit("remove checkpoint "+id, &git.CommitOptions{Author: &sig})
	if err != nil {
		return domainerrors.NewStorage("failed to commit checkpoint removal", err)
	}
	return nil
}

// GetMetadata returns a checkpoint's metadata only.
func (s *Store) GetMetadata(ctx context.Context, id string) (checkpoint.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := s.loadLocked(id)
	if err != nil {
		return checkpoint.Metadata{}, err
	}
	return cp.Metadata, nil
}

// History returns the commit messages touching id's file, oldest
// first, giving operators the checkpoint's full audit trail.
func (s *Store) History(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.repo.Head()
	if err != nil {
		return nil, domainerrors.NewStorage("failed to resolve repository head", err)
	}
	commits, err := s.repo.Log(&git.LogOptions{From: ref.Hash(), FileName: strPtr(id + fileSuffix)})
	if err != nil {
		return nil, domainerrors.NewStorage("failed to read checkpoint history", err)
	}

	var messages []string
	err = commits.ForEach(func(c *object.Commit) error {
		messages = append(messages, strings.TrimSpace(c.Message))
		return nil
	})
	if err != nil {
		return nil, domainerrors.NewStorage("failed to walk checkpoint history", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func strPtr(s string) *string { return &s }
