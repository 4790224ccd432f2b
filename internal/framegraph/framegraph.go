// Package framegraph builds the deduplicated object/relation graph of a
// single frame.
package framegraph

import (
	"errors"
	"fmt"

	"github.com/rcliao/graphene/internal/model"
)

// DefaultEpsilon is the merge tolerance used when none is given.
const DefaultEpsilon = 0.3

// ErrDanglingEdge is returned when an edge references a node index that is
// not part of the graph.
var ErrDanglingEdge = errors.New("edge endpoint not in frame graph")

// Edge is a directed relation between two nodes of the same frame, by index.
type Edge struct {
	From     int    `json:"from"`
	To       int    `json:"to"`
	Relation string `json:"relation"`
}

// Graph is the directed graph of one frame. Nodes keep insertion order.
type Graph struct {
	FrameID int
	Epsilon float64

	nodes []model.Object
	edges []Edge
	seen  map[Edge]struct{}
}

// New returns an empty graph for frameID. A non-positive epsilon falls back
// to DefaultEpsilon.
func New(frameID int, epsilon float64) *Graph {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Graph{
		FrameID: frameID,
		Epsilon: epsilon,
		seen:    make(map[Edge]struct{}),
	}
}

// Build creates the frame graph for a list of triples in order.
func Build(frameID int, triples []model.Triple, epsilon float64) *Graph {
	g := New(frameID, epsilon)
	for _, t := range triples {
		g.AddTriple(t)
	}
	return g
}

// ClosestNode returns the index of the first node approximately the same
// as candidate, or -1. The scan is in insertion order, so when several
// near-duplicates exist the first one seen is the canonical target.
func (g *Graph) ClosestNode(candidate model.Object) int {
	for i, n := range g.nodes {
		if candidate.ApproximatelySame(n, g.Epsilon) {
			return i
		}
	}
	return -1
}

// resolve returns the index of an existing near-duplicate of o, adding o
// as a new node when there is none.
func (g *Graph) resolve(o model.Object) int {
	if i := g.ClosestNode(o); i >= 0 {
		return i
	}
	return g.AddNode(o)
}

// AddTriple merges the subject and object into the graph and adds the
// subject→object edge.
func (g *Graph) AddTriple(t model.Triple) {
	s := g.resolve(t.Subject)
	o := g.resolve(t.Object)
	g.AddEdge(s, o, t.Predicate)
}

// AddNode appends o without deduplication and returns its index.
func (g *Graph) AddNode(o model.Object) int {
	g.nodes = append(g.nodes, o)
	return len(g.nodes) - 1
}

// AddEdge adds a directed edge. Adding the same (from, to, relation) twice
// is a no-op. Endpoints are not checked here; see Validate.
func (g *Graph) AddEdge(from, to int, relation string) {
	e := Edge{From: from, To: to, Relation: relation}
	if g.seen == nil {
		g.seen = make(map[Edge]struct{})
	}
	if _, ok := g.seen[e]; ok {
		return
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node at index i.
func (g *Graph) Node(i int) model.Object { return g.nodes[i] }

// Nodes returns a copy of the nodes in insertion order.
func (g *Graph) Nodes() []model.Object {
	out := make([]model.Object, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Successors returns the distinct target nodes of i's outgoing edges in
// edge order.
func (g *Graph) Successors(i int) []int {
	var out []int
	seen := make(map[int]bool)
	for _, e := range g.edges {
		if e.From == i && !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	return out
}

// Validate checks that every edge endpoint is a node of the graph.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if e.From < 0 || e.From >= len(g.nodes) || e.To < 0 || e.To >= len(g.nodes) {
			return fmt.Errorf("frame %d: edge %d->%d %q: %w", g.FrameID, e.From, e.To, e.Relation, ErrDanglingEdge)
		}
	}
	return nil
}

// Triples returns the graph's edges as triples over the merged nodes.
func (g *Graph) Triples() []model.Triple {
	out := make([]model.Triple, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, model.Triple{
			Subject:   g.nodes[e.From],
			Predicate: e.Relation,
			Object:    g.nodes[e.To],
		})
	}
	return out
}
