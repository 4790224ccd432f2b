package temporal

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/graphene/internal/framegraph"
	"github.com/rcliao/graphene/internal/geometry"
	"github.com/rcliao/graphene/internal/model"
)

// Params controls entity assignment for one Insert.
type Params struct {
	// Alpha weights neighbor similarity against spatial similarity.
	Alpha float64
	// MinAssignmentConf is the lowest score that reuses an existing entity.
	MinAssignmentConf float64
}

// DefaultParams returns alpha 0.3 and a minimum assignment confidence of 0.6.
func DefaultParams() Params {
	return Params{Alpha: 0.3, MinAssignmentConf: 0.6}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if math.IsNaN(p.Alpha) || p.Alpha < 0 || p.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v outside [0,1]", ErrInvalidParams, p.Alpha)
	}
	if math.IsNaN(p.MinAssignmentConf) {
		return fmt.Errorf("%w: min assignment confidence is NaN", ErrInvalidParams)
	}
	return nil
}

// Assignment records which entity a frame node resolved to.
type Assignment struct {
	Node     int     `json:"node"`
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
	Created  bool    `json:"created"`
}

// InsertResult summarizes one Insert.
type InsertResult struct {
	FrameID       int           `json:"frame_id"`
	Assignments   []Assignment  `json:"assignments"`
	Created       int           `json:"created"`
	Matched       int           `json:"matched"`
	EdgesCreated  int           `json:"edges_created"`
	EdgesExtended int           `json:"edges_extended"`
	Overlay       model.Overlay `json:"overlay"`
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptSnapshot, fmt.Sprintf(format, args...))
}

// Insert resolves every node of fg to a persistent entity and records the
// frame's relations. It validates fg and p before touching any state, so a
// failed Insert leaves the graph unchanged. An empty frame graph is a no-op.
func (g *Graph) Insert(fg *framegraph.Graph, p Params) (*InsertResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if fg == nil {
		return nil, fmt.Errorf("%w: nil frame graph", ErrDanglingEdge)
	}
	if err := fg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDanglingEdge, err)
	}
	if last, ok := g.LastFrame(); ok && fg.FrameID <= last {
		return nil, fmt.Errorf("%w: got %d, last %d", ErrNonMonotonicFrame, fg.FrameID, last)
	}

	res := &InsertResult{FrameID: fg.FrameID, Overlay: model.Overlay{FrameID: fg.FrameID}}
	if fg.Len() == 0 {
		return res, nil
	}

	pool := make([]*entity, len(g.order))
	for i, id := range g.order {
		pool[i] = g.entities[id]
	}

	scores, err := g.score(fg, pool, p.Alpha)
	if err != nil {
		return nil, err
	}

	mapping := g.assign(fg, pool, scores, p.MinAssignmentConf, res)
	g.materialize(fg, mapping, res)
	g.frames = append(g.frames, fg.FrameID)

	g.logger.Debug("inserted frame",
		"frame", fg.FrameID,
		"nodes", fg.Len(),
		"created", res.Created,
		"matched", res.Matched,
		"edges_created", res.EdgesCreated,
		"edges_extended", res.EdgesExtended,
		"entities", len(g.order),
	)
	return res, nil
}

// score computes the similarity of every frame node against every entity
// of the pool as it was when Insert began. Rows are independent, so they
// are spread over the configured workers.
func (g *Graph) score(fg *framegraph.Graph, pool []*entity, alpha float64) ([][]float64, error) {
	scores := make([][]float64, fg.Len())
	if len(pool) == 0 {
		return scores, nil
	}

	row := func(fi int) {
		f := fg.Node(fi)
		names := make(map[string]bool)
		for _, s := range fg.Successors(fi) {
			names[fg.Node(s).Name] = true
		}
		r := make([]float64, len(pool))
		for ti, t := range pool {
			r[ti] = g.similarity(alpha, f, names, t)
		}
		scores[fi] = r
	}

	if g.workers <= 1 || fg.Len() == 1 {
		for fi := 0; fi < fg.Len(); fi++ {
			row(fi)
		}
		return scores, nil
	}

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for fi := 0; fi < fg.Len(); fi++ {
		eg.Go(func() error {
			row(fi)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// similarity is (alpha*neighbor + (1-alpha)*spatial + name) / 2.
func (g *Graph) similarity(alpha float64, f model.Object, fNeighborNames map[string]bool, t *entity) float64 {
	var neighbor float64
	if succ := g.succ[t.id]; len(succ) > 0 {
		matches := 0
		for _, id := range succ {
			if fNeighborNames[g.entities[id].name] {
				matches++
			}
		}
		neighbor = float64(matches) / float64(len(succ))
	}
	spatial := geometry.BoxSimilarity(f.Box, t.box)
	name := g.table.Similarity(f.Name, t.name)
	return (alpha*neighbor + (1-alpha)*spatial + name) / 2
}

// assign walks the frame nodes in order and greedily gives each its best
// remaining candidate. A matched entity leaves the pool, so two nodes of
// one frame never resolve to the same entity. Ties go to the earliest
// created entity.
func (g *Graph) assign(fg *framegraph.Graph, pool []*entity, scores [][]float64, minConf float64, res *InsertResult) []string {
	mapping := make([]string, fg.Len())
	available := make([]bool, len(pool))
	for i := range available {
		available[i] = true
	}

	for fi := 0; fi < fg.Len(); fi++ {
		f := fg.Node(fi)
		best, bestIdx := -1.0, -1
		for ti := range pool {
			if available[ti] && scores[fi][ti] > best {
				best, bestIdx = scores[fi][ti], ti
			}
		}

		if bestIdx < 0 || best <= 0 || best < minConf {
			e := &entity{
				id:        g.newID(f.Name),
				name:      f.Name,
				box:       f.Box,
				frames:    []int{fg.FrameID},
				firstSeen: fg.FrameID,
			}
			g.addEntity(e)
			mapping[fi] = e.id
			res.Created++
			res.Assignments = append(res.Assignments, Assignment{Node: fi, EntityID: e.id, Score: best, Created: true})
			res.Overlay.Items = append(res.Overlay.Items, model.OverlayItem{EntityID: e.id, Name: f.Name, Box: f.Box, Created: true})
			continue
		}

		e := pool[bestIdx]
		available[bestIdx] = false
		e.name = f.Name
		e.box = f.Box
		e.frames = append(e.frames, fg.FrameID)
		mapping[fi] = e.id
		res.Matched++
		res.Assignments = append(res.Assignments, Assignment{Node: fi, EntityID: e.id, Score: best})
		res.Overlay.Items = append(res.Overlay.Items, model.OverlayItem{EntityID: e.id, Name: f.Name, Box: f.Box})
	}
	return mapping
}

// materialize records each frame edge between the resolved entities,
// extending a record that was alive in the previous frame or opening a new
// interval otherwise.
func (g *Graph) materialize(fg *framegraph.Graph, mapping []string, res *InsertResult) {
	now := fg.FrameID
	for _, fe := range fg.Edges() {
		from, to := mapping[fe.From], mapping[fe.To]

		var current, continuing *model.EdgeRecord
		for _, r := range g.byPair[pairKey{from, to}] {
			if r.Relation != fe.Relation {
				continue
			}
			switch r.LastPresence {
			case now:
				current = r
			case now - 1:
				continuing = r
			}
		}

		switch {
		case current != nil:
		case continuing != nil:
			continuing.LastPresence = now
			res.EdgesExtended++
		default:
			g.addRecord(&model.EdgeRecord{
				From:           from,
				To:             to,
				Relation:       fe.Relation,
				AppearanceTime: now,
				LastPresence:   now,
			})
			res.EdgesCreated++
		}
	}
}
