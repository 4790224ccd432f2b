package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/graphene/internal/model"
	"github.com/rcliao/graphene/internal/narrative"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		name        TEXT,
		alpha       REAL NOT NULL,
		min_conf    REAL NOT NULL,
		epsilon     REAL NOT NULL,
		created_at  TEXT NOT NULL,
		deleted_at  TEXT,
		frames      INTEGER NOT NULL DEFAULT 0,
		entities    INTEGER NOT NULL DEFAULT 0,
		edges       INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
	CREATE INDEX IF NOT EXISTS idx_runs_deleted ON runs(deleted_at);

	CREATE TABLE IF NOT EXISTS run_frames (
		run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq     INTEGER NOT NULL,
		frame   INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS entities (
		run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		id          TEXT NOT NULL,
		name        TEXT NOT NULL,
		xmin        REAL NOT NULL,
		ymin        REAL NOT NULL,
		xmax        REAL NOT NULL,
		ymax        REAL NOT NULL,
		first_seen  INTEGER NOT NULL,
		frames      TEXT NOT NULL,
		PRIMARY KEY (run_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_entities_seq ON entities(run_id, seq);

	CREATE TABLE IF NOT EXISTS edges (
		run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq              INTEGER NOT NULL,
		from_id          TEXT NOT NULL,
		to_id            TEXT NOT NULL,
		relation         TEXT NOT NULL,
		appearance_time  INTEGER NOT NULL,
		last_presence    INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(run_id, from_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(run_id, to_id);

	CREATE TABLE IF NOT EXISTS sentences (
		run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq              INTEGER NOT NULL,
		appearance_time  INTEGER NOT NULL,
		last_presence    INTEGER NOT NULL,
		text             TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save writes the snapshot and its narrative in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, p SaveParams) (*model.Run, error) {
	run := &model.Run{
		ID:        s.newID(),
		Name:      p.Name,
		Params:    p.Params,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.insertRun(ctx, run, p.Snapshot); err != nil {
		return nil, err
	}
	return run, nil
}

// insertRun stores run under its existing id and fills in its counts.
func (s *SQLiteStore) insertRun(ctx context.Context, run *model.Run, snap model.Snapshot) error {
	run.Frames = len(snap.Frames)
	run.Entities = len(snap.Entities)
	run.Edges = len(snap.Edges)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var name *string
	if run.Name != "" {
		name = &run.Name
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, alpha, min_conf, epsilon, created_at, frames, entities, edges)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, name, run.Params.Alpha, run.Params.MinAssignmentConf, run.Params.Epsilon,
		run.CreatedAt.Format(time.RFC3339Nano), run.Frames, run.Entities, run.Edges)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, f := range snap.Frames {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_frames (run_id, seq, frame) VALUES (?, ?, ?)`, run.ID, i, f); err != nil {
			return fmt.Errorf("insert frame: %w", err)
		}
	}

	for i, e := range snap.Entities {
		frames, _ := json.Marshal(e.Frames)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (run_id, seq, id, name, xmin, ymin, xmax, ymax, first_seen, frames)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, e.ID, e.Name, e.Box.XMin, e.Box.YMin, e.Box.XMax, e.Box.YMax,
			e.FirstSeen, string(frames)); err != nil {
			return fmt.Errorf("insert entity %s: %w", e.ID, err)
		}
	}

	for i, r := range snap.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (run_id, seq, from_id, to_id, relation, appearance_time, last_presence)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, r.From, r.To, r.Relation, r.AppearanceTime, r.LastPresence); err != nil {
			return fmt.Errorf("insert edge: %w", err)
		}
	}

	for i, r := range narrative.Ordered(snap) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sentences (run_id, seq, appearance_time, last_presence, text)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, r.AppearanceTime, r.LastPresence, narrative.Sentence(r)); err != nil {
			return fmt.Errorf("insert sentence: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, name, alpha, min_conf, epsilon, created_at, deleted_at, frames, entities, edges`

func (s *SQLiteStore) Get(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? AND deleted_at IS NULL`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) Latest(ctx context.Context) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE deleted_at IS NULL ORDER BY id DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) Load(ctx context.Context, runID string) (*model.Snapshot, error) {
	if _, err := s.Get(ctx, runID); err != nil {
		return nil, err
	}

	snap := &model.Snapshot{
		Frames:   []int{},
		Entities: []model.Entity{},
		Edges:    []model.EdgeRecord{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT frame FROM run_frames WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var f int
		if err := rows.Scan(&f); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Frames = append(snap.Frames, f)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, name, xmin, ymin, xmax, ymax, first_seen, frames
		 FROM entities WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var e model.Entity
		var frames string
		if err := rows.Scan(&e.ID, &e.Name, &e.Box.XMin, &e.Box.YMin, &e.Box.XMax, &e.Box.YMax,
			&e.FirstSeen, &frames); err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal([]byte(frames), &e.Frames); err != nil {
			rows.Close()
			return nil, fmt.Errorf("entity %s frames: %w", e.ID, err)
		}
		snap.Entities = append(snap.Entities, e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	edges, err := s.queryEdges(ctx, `WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	snap.Edges = append(snap.Edges, edges...)

	return snap, nil
}

func (s *SQLiteStore) queryEdges(ctx context.Context, where string, args ...interface{}) ([]model.EdgeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, relation, appearance_time, last_presence FROM edges `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []model.EdgeRecord
	for rows.Next() {
		var r model.EdgeRecord
		if err := rows.Scan(&r.From, &r.To, &r.Relation, &r.AppearanceTime, &r.LastPresence); err != nil {
			return nil, err
		}
		edges = append(edges, r)
	}
	return edges, rows.Err()
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Run, error) {
	// A negative limit lists every run.
	limit := p.Limit
	if limit == 0 {
		limit = 20
	}

	where := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	if p.Name != "" {
		where = append(where, "name = ?")
		args = append(args, p.Name)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Rm(ctx context.Context, p RmParams) error {
	if p.Hard {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, p.RunID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, p.RunID)
		}
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now, p.RunID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p.RunID)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (model.Run, error) {
	var r model.Run
	var name, deletedAt sql.NullString
	var createdAt string

	err := row.Scan(
		&r.ID, &name, &r.Params.Alpha, &r.Params.MinAssignmentConf, &r.Params.Epsilon,
		&createdAt, &deletedAt, &r.Frames, &r.Entities, &r.Edges,
	)
	if err != nil {
		return r, err
	}

	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if name.Valid {
		r.Name = name.String
	}
	if deletedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, deletedAt.String)
		r.DeletedAt = &t
	}
	return r, nil
}
