package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/graphene/internal/similarity"
)

// DefaultThreshold is the lowest cosine similarity kept as a table pair.
const DefaultThreshold = 0.6

// BuildOptions configures BuildTable.
type BuildOptions struct {
	Threshold float64
	Workers   int
	Logger    *slog.Logger
}

// BuildTable embeds every class name and keeps the pairs whose cosine
// similarity reaches the threshold. Weights are rounded to two decimals.
func BuildTable(ctx context.Context, emb Embedder, names []string, opts BuildOptions) (*similarity.Table, error) {
	if emb == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	names = uniqueNames(names)
	vecs := make([]Vector, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, name := range names {
		g.Go(func() error {
			v, err := emb.Embed(gctx, name)
			if err != nil {
				return fmt.Errorf("embed %q: %w", name, err)
			}
			vecs[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pairs []similarity.Pair
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			sim := CosineSimilarity(vecs[i], vecs[j])
			if sim < opts.Threshold {
				continue
			}
			w := math.Min(1, math.Round(sim*100)/100)
			pairs = append(pairs, similarity.Pair{A: names[i], B: names[j], Weight: w})
		}
	}
	logger.Debug("built similarity table", "names", len(names), "pairs", len(pairs), "threshold", opts.Threshold)

	return similarity.New(pairs)
}

// uniqueNames normalizes, dedupes and sorts class names.
func uniqueNames(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
