package ports

import (
	"context"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
)

// CheckpointBackend is the Checkpoint Storage contract (spec.md §4.H).
// All operations are expected to be internally serialized by the
// implementation (spec.md §5 "Checkpoint writes ... are totally
// ordered"); callers do not add their own locking.
type CheckpointBackend interface {
	Save(ctx context.Context, cp checkpoint.Checkpoint) error
	Load(ctx context.Context, id string) (checkpoint.Checkpoint, error)
	// List returns checkpoint ids for operationID (or every operation
	// when operationID is ""), sorted by creation timestamp descending.
	List(ctx context.Context, operationID string) ([]string, error)
	Delete(ctx context.Context, id string) error
	GetMetadata(ctx context.Context, id string) (checkpoint.Metadata, error)
}

// Cipher is a pluggable symmetric transform applied to a checkpoint's
// binary payload before it reaches storage (spec.md §9's encryption
// open question). Implementations must be deterministic only in the
// sense that Decrypt(Encrypt(x)) == x; they need not produce the same
// ciphertext twice.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}
