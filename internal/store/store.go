// Package store persists temporal graph snapshots in SQLite.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/graphene/internal/model"
)

// ErrNotFound is returned when a run does not exist or was deleted.
var ErrNotFound = errors.New("run not found")

// SaveParams holds parameters for saving a snapshot.
type SaveParams struct {
	Name     string
	Params   model.Params
	Snapshot model.Snapshot
}

// ListParams holds parameters for listing runs.
type ListParams struct {
	Name  string
	Limit int
}

// RmParams holds parameters for deleting a run.
type RmParams struct {
	RunID string
	Hard  bool
}

// Store defines the snapshot storage interface.
type Store interface {
	// Save writes a snapshot as a new run. Returns the created run.
	Save(ctx context.Context, p SaveParams) (*model.Run, error)

	// Get returns run metadata by id.
	Get(ctx context.Context, runID string) (*model.Run, error)

	// Load returns the snapshot stored for a run.
	Load(ctx context.Context, runID string) (*model.Snapshot, error)

	// Latest returns the most recently saved run.
	Latest(ctx context.Context) (*model.Run, error)

	// List lists runs, newest first.
	List(ctx context.Context, p ListParams) ([]model.Run, error)

	// Rm soft-deletes (or hard-deletes) a run.
	Rm(ctx context.Context, p RmParams) error

	// Close closes the store.
	Close() error
}
