package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/engine"
)

// Storage persists session snapshots. The engine exposes a new
// snapshot after every committed transition and effect application;
// when and how often to write it is this layer's concern.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// SaveSession stores a snapshot under the session ID.
	SaveSession(ctx context.Context, id uuid.UUID, snap *engine.Snapshot) error

	// LoadSession retrieves a snapshot. Returns (nil, nil) when no
	// saved state exists; the caller applies defaults.
	LoadSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error)

	// DeleteSession removes a snapshot.
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
