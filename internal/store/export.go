package store

import (
	"context"
	"time"

	"github.com/rcliao/graphene/internal/model"
)

// ExportAll returns every non-deleted run with its snapshot, optionally
// filtered by run name.
func (s *SQLiteStore) ExportAll(ctx context.Context, name string) ([]model.RunExport, error) {
	runs, err := s.List(ctx, ListParams{Name: name, Limit: -1})
	if err != nil {
		return nil, err
	}

	exports := make([]model.RunExport, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		snap, err := s.Load(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		exports = append(exports, model.RunExport{Run: runs[i], Snapshot: *snap})
	}
	return exports, nil
}

// Import stores runs from an export under their original ids. Runs that
// already exist are skipped.
func (s *SQLiteStore) Import(ctx context.Context, exports []model.RunExport) (int, error) {
	imported := 0
	for _, ex := range exports {
		run := ex.Run
		if run.ID == "" {
			run.ID = s.newID()
		}
		var exists int
		s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, run.ID).Scan(&exists)
		if exists > 0 {
			continue
		}
		if run.CreatedAt.IsZero() {
			run.CreatedAt = time.Now().UTC()
		}
		run.DeletedAt = nil
		if err := s.insertRun(ctx, &run, ex.Snapshot); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
