package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string      `json:"db_path"`
	DBSizeBytes    int64       `json:"db_size_bytes"`
	TotalRuns      int         `json:"total_runs"`
	ActiveRuns     int         `json:"active_runs"`
	TotalEntities  int         `json:"total_entities"`
	TotalEdges     int         `json:"total_edges"`
	TotalSentences int         `json:"total_sentences"`
	Names          []NameStats `json:"names"`
}

// NameStats holds per-name run counts.
type NameStats struct {
	Name   string `json:"name"`
	Runs   int    `json:"runs"`
	Frames int    `json:"frames"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&st.TotalRuns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE deleted_at IS NULL`).Scan(&st.ActiveRuns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&st.TotalEntities)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&st.TotalEdges)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentences`).Scan(&st.TotalSentences)

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(name, ''), COUNT(*) as cnt, SUM(frames)
		FROM runs WHERE deleted_at IS NULL
		GROUP BY name ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var n NameStats
		rows.Scan(&n.Name, &n.Runs, &n.Frames)
		st.Names = append(st.Names, n)
	}

	return st, nil
}
