// Package plot writes diagnostic renderings of a temporal graph: a
// Graphviz DOT file layered by frame and an SVG box overlay for a single
// frame.
package plot

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/rcliao/graphene/internal/model"
)

// Runs with more than DefaultMaxLayers frames plot every
// DefaultSampleEvery-th frame.
const (
	DefaultMaxLayers   = 10
	DefaultSampleEvery = 10
)

// Options controls the DOT rendering.
type Options struct {
	// MaxLayers is the frame count above which frames are sampled.
	MaxLayers int
	// SampleEvery keeps every n-th frame when sampling.
	SampleEvery int
	// Title labels the whole graph.
	Title string
}

// DefaultOptions returns the layer sampling used by the CLI.
func DefaultOptions() Options {
	return Options{MaxLayers: DefaultMaxLayers, SampleEvery: DefaultSampleEvery}
}

// Layers returns the frame ids that get their own cluster.
func Layers(frames []int, opts Options) []int {
	if opts.MaxLayers <= 0 {
		opts.MaxLayers = DefaultMaxLayers
	}
	if opts.SampleEvery <= 0 {
		opts.SampleEvery = DefaultSampleEvery
	}
	if len(frames) <= opts.MaxLayers {
		out := make([]int, len(frames))
		copy(out, frames)
		return out
	}
	var out []int
	for i := 0; i < len(frames); i += opts.SampleEvery {
		out = append(out, frames[i])
	}
	return out
}

// nodeID names an entity inside a frame layer.
func nodeID(frame int, entity string) string {
	return strconv.Quote(fmt.Sprintf("f%d/%s", frame, entity))
}

// WriteDOT renders snap as one cluster per sampled frame. Each cluster
// holds the entities observed in that frame and the relations alive in it.
// Dashed edges link an entity to itself in the previous layer.
func WriteDOT(w io.Writer, snap model.Snapshot, opts Options) error {
	bw := bufio.NewWriter(w)
	layers := Layers(snap.Frames, opts)

	fmt.Fprintln(bw, "digraph temporal {")
	fmt.Fprintln(bw, "\trankdir=LR;")
	fmt.Fprintln(bw, "\tcompound=true;")
	fmt.Fprintln(bw, "\tnode [shape=box, fontsize=10];")
	if opts.Title != "" {
		fmt.Fprintf(bw, "\tlabel=%s;\n", strconv.Quote(opts.Title))
	}

	for i, f := range layers {
		fmt.Fprintf(bw, "\tsubgraph cluster_%d {\n", i)
		fmt.Fprintf(bw, "\t\tlabel=%s;\n", strconv.Quote(fmt.Sprintf("Frame %d", f)))
		for _, e := range snap.Entities {
			if e.SeenIn(f) {
				fmt.Fprintf(bw, "\t\t%s [label=%s];\n", nodeID(f, e.ID), strconv.Quote(e.ID))
			}
		}
		for _, r := range snap.Edges {
			if r.AliveIn(f) {
				fmt.Fprintf(bw, "\t\t%s -> %s [label=%s];\n",
					nodeID(f, r.From), nodeID(f, r.To), strconv.Quote(r.Relation))
			}
		}
		fmt.Fprintln(bw, "\t}")
	}

	for i := 1; i < len(layers); i++ {
		prev, cur := layers[i-1], layers[i]
		for _, e := range snap.Entities {
			if e.SeenIn(prev) && e.SeenIn(cur) {
				fmt.Fprintf(bw, "\t%s -> %s [style=dashed, arrowhead=none, color=gray];\n",
					nodeID(prev, e.ID), nodeID(cur, e.ID))
			}
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
