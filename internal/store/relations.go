package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcliao/graphene/internal/model"
)

// Entity returns one entity of a run.
func (s *SQLiteStore) Entity(ctx context.Context, runID, entityID string) (*model.Entity, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}

	var e model.Entity
	var frames string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, xmin, ymin, xmax, ymax, first_seen, frames
		 FROM entities WHERE run_id = ? AND id = ?`, runID, entityID).Scan(
		&e.ID, &e.Name, &e.Box.XMin, &e.Box.YMin, &e.Box.XMax, &e.Box.YMax, &e.FirstSeen, &frames)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: entity %s in run %s", ErrNotFound, entityID, runID)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(frames), &e.Frames); err != nil {
		return nil, fmt.Errorf("entity %s frames: %w", e.ID, err)
	}
	return &e, nil
}

// Relations returns every edge record of a run that touches entityID,
// in record order.
func (s *SQLiteStore) Relations(ctx context.Context, runID, entityID string) ([]model.EdgeRecord, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}
	return s.queryEdges(ctx, `WHERE run_id = ? AND (from_id = ? OR to_id = ?) ORDER BY seq`,
		runID, entityID, entityID)
}
