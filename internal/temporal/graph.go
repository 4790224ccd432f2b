// Package temporal maintains the persistent entity graph across frames.
//
// Every Insert resolves the nodes of one frame graph to persistent
// entities, either matching an existing entity or minting a new one, and
// then records which relations held between those entities in that frame.
// Relations are stored as time intervals, so a relation that lapses and
// later recurs produces two records.
//
// A Graph is not safe for concurrent use. Frames must be inserted by a
// single caller in increasing frame order.
package temporal

import (
	"errors"
	"io"
	"log/slog"
	"sort"

	"github.com/rcliao/graphene/internal/geometry"
	"github.com/rcliao/graphene/internal/model"
	"github.com/rcliao/graphene/internal/similarity"
)

var (
	// ErrNonMonotonicFrame is returned when a frame id does not exceed the
	// previously inserted one.
	ErrNonMonotonicFrame = errors.New("frame id not greater than last inserted frame")

	// ErrDanglingEdge is returned when a frame graph edge references a node
	// that is not in the frame graph.
	ErrDanglingEdge = errors.New("malformed frame graph")

	// ErrInvalidParams is returned for out-of-range assignment parameters.
	ErrInvalidParams = errors.New("invalid assignment parameters")

	// ErrCorruptSnapshot is returned by Restore when a snapshot violates
	// the graph invariants.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// entity is the arena record behind a model.Entity.
type entity struct {
	id        string
	name      string
	box       geometry.Box
	frames    []int
	firstSeen int
}

func (e *entity) export() model.Entity {
	frames := make([]int, len(e.frames))
	copy(frames, e.frames)
	return model.Entity{
		ID:        e.id,
		Name:      e.name,
		Box:       e.box,
		Frames:    frames,
		FirstSeen: e.firstSeen,
	}
}

type pairKey struct {
	from, to string
}

// Graph is the temporal graph engine.
type Graph struct {
	table   *similarity.Table
	logger  *slog.Logger
	ids     IDGenerator
	workers int

	entities map[string]*entity
	order    []string

	records []*model.EdgeRecord
	byPair  map[pairKey][]*model.EdgeRecord
	succ    map[string][]string

	frames []int
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for per-frame debug output.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithIDGenerator replaces the default entity id generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(g *Graph) {
		if gen != nil {
			g.ids = gen
		}
	}
}

// WithWorkers sets how many goroutines score frame nodes against the
// candidate pool. Only scoring runs in parallel: assignment removes matched
// entities from the pool, so it always runs sequentially in node order and
// the result is identical for any worker count.
func WithWorkers(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.workers = n
		}
	}
}

// New returns an empty temporal graph that compares class names with table.
// A nil table matches identical names only.
func New(table *similarity.Table, opts ...Option) *Graph {
	if table == nil {
		table = similarity.Empty()
	}
	g := &Graph{
		table:    table,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:      UUIDs(),
		workers:  1,
		entities: make(map[string]*entity),
		byPair:   make(map[pairKey][]*model.EdgeRecord),
		succ:     make(map[string][]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Len returns the number of entities.
func (g *Graph) Len() int { return len(g.order) }

// Entity returns the entity with the given id.
func (g *Graph) Entity(id string) (model.Entity, bool) {
	e, ok := g.entities[id]
	if !ok {
		return model.Entity{}, false
	}
	return e.export(), true
}

// Entities returns all entities in creation order.
func (g *Graph) Entities() []model.Entity {
	out := make([]model.Entity, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entities[id].export())
	}
	return out
}

// Edges returns every edge record in creation order.
func (g *Graph) Edges() []model.EdgeRecord {
	out := make([]model.EdgeRecord, 0, len(g.records))
	for _, r := range g.records {
		out = append(out, *r)
	}
	return out
}

// History returns the records between from and to, oldest first.
func (g *Graph) History(from, to string) []model.EdgeRecord {
	recs := g.byPair[pairKey{from, to}]
	out := make([]model.EdgeRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, *r)
	}
	return out
}

// Neighbors returns the distinct successor entity ids of id.
func (g *Graph) Neighbors(id string) []string {
	out := make([]string, len(g.succ[id]))
	copy(out, g.succ[id])
	return out
}

// Frames returns the inserted frame ids in order.
func (g *Graph) Frames() []int {
	out := make([]int, len(g.frames))
	copy(out, g.frames)
	return out
}

// LastFrame returns the most recently inserted frame id.
func (g *Graph) LastFrame() (int, bool) {
	if len(g.frames) == 0 {
		return 0, false
	}
	return g.frames[len(g.frames)-1], true
}

// Snapshot returns a deep copy of the current state.
func (g *Graph) Snapshot() model.Snapshot {
	return model.Snapshot{
		Frames:   g.Frames(),
		Entities: g.Entities(),
		Edges:    g.Edges(),
	}
}

// Overlay returns the entities observed in the most recent frame with
// their latest boxes.
func (g *Graph) Overlay() model.Overlay {
	last, ok := g.LastFrame()
	if !ok {
		return model.Overlay{}
	}
	ov := model.Overlay{FrameID: last}
	for _, id := range g.order {
		e := g.entities[id]
		if len(e.frames) == 0 || e.frames[len(e.frames)-1] != last {
			continue
		}
		ov.Items = append(ov.Items, model.OverlayItem{
			EntityID: e.id,
			Name:     e.name,
			Box:      e.box,
			Created:  e.firstSeen == last,
		})
	}
	return ov
}

func (g *Graph) addEntity(e *entity) {
	g.entities[e.id] = e
	g.order = append(g.order, e.id)
}

func (g *Graph) addRecord(r *model.EdgeRecord) {
	key := pairKey{r.From, r.To}
	if len(g.byPair[key]) == 0 {
		g.succ[r.From] = append(g.succ[r.From], r.To)
	}
	g.records = append(g.records, r)
	g.byPair[key] = append(g.byPair[key], r)
}

// Restore rebuilds a graph from a snapshot produced by Snapshot.
func Restore(snap model.Snapshot, table *similarity.Table, opts ...Option) (*Graph, error) {
	g := New(table, opts...)

	if !sort.IntsAreSorted(snap.Frames) {
		return nil, corrupt("frames are not sorted")
	}
	for i := 1; i < len(snap.Frames); i++ {
		if snap.Frames[i] == snap.Frames[i-1] {
			return nil, corrupt("duplicate frame %d", snap.Frames[i])
		}
	}
	g.frames = append(g.frames, snap.Frames...)
	known := make(map[int]bool, len(snap.Frames))
	for _, f := range snap.Frames {
		known[f] = true
	}
	last, hasFrames := g.LastFrame()

	for _, e := range snap.Entities {
		if e.ID == "" {
			return nil, corrupt("entity with empty id")
		}
		if _, dup := g.entities[e.ID]; dup {
			return nil, corrupt("duplicate entity %s", e.ID)
		}
		if !sort.IntsAreSorted(e.Frames) {
			return nil, corrupt("entity %s: frames are not sorted", e.ID)
		}
		for _, f := range e.Frames {
			if !known[f] {
				return nil, corrupt("entity %s: frame %d was never inserted", e.ID, f)
			}
		}
		frames := make([]int, len(e.Frames))
		copy(frames, e.Frames)
		g.addEntity(&entity{
			id:        e.ID,
			name:      e.Name,
			box:       e.Box,
			frames:    frames,
			firstSeen: e.FirstSeen,
		})
	}

	for _, r := range snap.Edges {
		if _, ok := g.entities[r.From]; !ok {
			return nil, corrupt("edge references unknown entity %s", r.From)
		}
		if _, ok := g.entities[r.To]; !ok {
			return nil, corrupt("edge references unknown entity %s", r.To)
		}
		if r.AppearanceTime > r.LastPresence {
			return nil, corrupt("edge %s-%s %q: appearance %d after last presence %d",
				r.From, r.To, r.Relation, r.AppearanceTime, r.LastPresence)
		}
		if !hasFrames || r.LastPresence > last {
			return nil, corrupt("edge %s-%s %q: last presence %d after last frame",
				r.From, r.To, r.Relation, r.LastPresence)
		}
		rec := r
		g.addRecord(&rec)
	}

	return g, nil
}
