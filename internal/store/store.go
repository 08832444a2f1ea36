package store

import (
	"context"
	"time"

	"github.com/remindly/remindly-server/internal/model"
)

// Store exposes persistence operations required by the ingestion and chat
// paths. Implementations live under internal/store/<driver>/.
type Store interface {
	Memories() Memories
	OwnerConfigs() OwnerConfigs
}

// Memories is the record store for captured memories. All operations are
// scoped by owner; implementations must never return another owner's rows.
type Memories interface {
	// Reserve atomically inserts a pending row keyed on
	// (ownerID, contentHash). When a row for that key already exists it
	// returns model.ErrDuplicateContent and writes nothing. This is the
	// single dedup gate; there is no separate existence check.
	Reserve(ctx context.Context, m *model.Memory) (*model.Memory, error)

	// Finalize completes a reservation with extracted text, blob reference
	// and embedding, flipping status to active.
	Finalize(ctx context.Context, m *model.Memory) (*model.Memory, error)

	// Release rolls back a pending reservation after a downstream failure.
	Release(ctx context.Context, ownerID, memoryID string) error

	Get(ctx context.Context, ownerID, memoryID string) (*model.Memory, error)

	// List returns the owner's finalized memories, newest first, without
	// embedding payloads.
	List(ctx context.Context, ownerID string) ([]*model.Memory, error)

	// Candidates returns the owner's finalized memories with embeddings,
	// for similarity scoring.
	Candidates(ctx context.Context, ownerID string) ([]*model.Memory, error)

	// UpdateComment is the only mutation allowed after finalization.
	UpdateComment(ctx context.Context, ownerID, memoryID, comment string) (*model.Memory, error)

	// DeleteExpiredReservations removes pending rows created before cutoff,
	// returning the number of rows deleted. Used by the housekeeping sweeper.
	DeleteExpiredReservations(ctx context.Context, cutoff time.Time) (int64, error)
}

// OwnerConfigs stores per-owner model selection. Get returns
// model.ErrNotFound when the owner has no configuration.
type OwnerConfigs interface {
	Get(ctx context.Context, ownerID string) (*model.OwnerModelConfig, error)
	Put(ctx context.Context, c *model.OwnerModelConfig) (*model.OwnerModelConfig, error)
}
