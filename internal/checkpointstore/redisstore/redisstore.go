// Package redisstore is a distributed Checkpoint Storage backend
// (spec.md §4.H) for operators running the engine across multiple
// coordinating processes against one checkpoint namespace. It does not
// distribute stage execution itself (still a non-goal) — only the
// durable medium checkpoints are written to and read back from.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
)

// Store persists checkpoints as JSON string values under a configured key
// namespace, with a per-operation sorted set tracking checkpoint ids by
// creation time for List.
type Store struct {
	client    *redis.Client
	namespace string
}

// New constructs a Store against client, prefixing every key with
// namespace (so multiple reconctl deployments can share one Redis
// instance without colliding).
func New(client *redis.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

func (s *Store) checkpointKey(id string) string {
	return fmt.Sprintf("%s:checkpoint:%s", s.namespace, id)
}

func (s *Store) operationIndexKey(operationID string) string {
	return fmt.Sprintf("%s:operation:%s:checkpoints", s.namespace, operationID)
}

type document struct {
	Metadata checkpoint.Metadata      `json:"metadata"`
	State    checkpoint.PipelineState `json:"state"`
	Binary   []byte                   `json:"binary_data,omitempty"`
}

// Save writes cp's document and indexes it under its operation id.
func (s *Store) Save(ctx context.Context, cp checkpoint.Checkpoint) error {
	data, err := json.Marshal(document{Metadata: cp.Metadata, State: cp.State, Binary: cp.BinaryData})
	if err != nil {
		return domainerrors.NewStorage("failed to marshal checkpoint", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.checkpointKey(cp.Metadata.CheckpointID), data, 0)
	pipe.ZAdd(ctx, s.operationIndexKey(cp.Metadata.OperationID), redis.Z{
		Score:  float64(cp.Metadata.CreatedAt.UnixNano()),
		Member: cp.Metadata.CheckpointID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return domainerrors.NewStorage("failed to persist checkpoint to redis", err)
	}
	return nil
}

// Load retrieves a checkpoint by id.
func (s *Store) Load(ctx context.Context, id string) (checkpoint.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return checkpoint.Checkpoint{}, domainerrors.NewNotFound("checkpoint not found", map[string]interface{}{"checkpoint_id": id})
		}
		return checkpoint.Checkpoint{}, domainerrors.NewStorage("failed to read checkpoint from redis", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return checkpoint.Checkpoint{}, domainerrors.NewStorage("failed to parse checkpoint", err)
	}
	return checkpoint.Checkpoint{Metadata: doc.Metadata, State: doc.State, BinaryData: doc.Binary}, nil
}

// List returns checkpoint ids for operationID, newest first. When
// operationID is "" it scans every known operation index.
func (s *Store) List(ctx context.Context, operationID string) ([]string, error) {
	if operationID != "" {
		return s.client.ZRevRange(ctx, s.operationIndexKey(operationID), 0, -1).Result()
	}

	var all []redis.Z
	iter := s.client.Scan(ctx, 0, s.namespace+":operation:*:checkpoints", 0).Iterator()
	for iter.Next(ctx) {
		zs, err := s.client.ZRevRangeWithScores(ctx, iter.Val(), 0, -1).Result()
		if err != nil {
			return nil, domainerrors.NewStorage("failed to scan checkpoint indices", err)
		}
		all = append(all, zs...)
	}
	if err := iter.Err(); err != nil {
		return nil, domainerrors.NewStorage("failed to scan checkpoint indices", err)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	allIDs := make([]string, 0, len(all))
	for _, z := range all {
		allIDs = append(allIDs, fmt.Sprint(z.Member))
	}
	return allIDs, nil
}

// Delete removes a checkpoint and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	cp, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.checkpointKey(id))
	pipe.ZRem(ctx, s.operationIndexKey(cp.Metadata.OperationID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return domainerrors.NewStorage("failed to delete checkpoint from redis", err)
	}
	return nil
}

// GetMetadata returns a checkpoint's metadata only.
func (s *Store) GetMetadata(ctx context.Context, id string) (checkpoint.Metadata, error) {
	cp, err := s.Load(ctx, id)
	if err != nil {
		return checkpoint.Metadata{}, err
	}
	return cp.Metadata, nil
}
