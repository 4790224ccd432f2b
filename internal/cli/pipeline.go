package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/graphene/internal/config"
	"github.com/rcliao/graphene/internal/framegraph"
	"github.com/rcliao/graphene/internal/model"
	"github.com/rcliao/graphene/internal/narrative"
	"github.com/rcliao/graphene/internal/plot"
	"github.com/rcliao/graphene/internal/similarity"
	"github.com/rcliao/graphene/internal/store"
	"github.com/rcliao/graphene/internal/temporal"
)

// addEngineFlags registers the flags shared by ingest and watch.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("alpha", 0.3, "Weight of neighbor similarity against spatial similarity")
	cmd.Flags().Float64("min-confidence", 0.6, "Lowest score that reuses an existing entity")
	cmd.Flags().Float64("epsilon", 0.3, "Merge tolerance for near-duplicate objects within a frame")
	cmd.Flags().Int("workers", 1, "Goroutines used to score frame nodes")
	cmd.Flags().String("similarity", "", "Similarity table YAML (default: built-in)")
	cmd.Flags().Bool("sequential-ids", false, "Number entities per class instead of random suffixes")
	cmd.Flags().String("text", "", "Write the narrative to this file")
	cmd.Flags().String("timeline", "", "Write the scene timeline to this file")
	cmd.Flags().Duration("step", time.Second, "Duration of one frame in the timeline")
	cmd.Flags().String("overlay-dir", "", "Write an SVG overlay per frame into this directory")
	cmd.Flags().String("dot", "", "Write a Graphviz DOT rendering to this file")
	cmd.Flags().Bool("save", false, "Save the final snapshot to the database")
	cmd.Flags().String("name", "", "Name of the saved run")
}

// engineSettings starts from the loaded config and applies flags the user
// set explicitly.
func engineSettings(cmd *cobra.Command) config.EngineConfig {
	ec := config.EngineConfig{Alpha: 0.3, MinConfidence: 0.6, Epsilon: 0.3, Workers: 1}
	if cfg != nil {
		ec = cfg.Engine
	}
	f := cmd.Flags()
	if f.Changed("alpha") {
		ec.Alpha, _ = f.GetFloat64("alpha")
	}
	if f.Changed("min-confidence") {
		ec.MinConfidence, _ = f.GetFloat64("min-confidence")
	}
	if f.Changed("epsilon") {
		ec.Epsilon, _ = f.GetFloat64("epsilon")
	}
	if f.Changed("workers") {
		ec.Workers, _ = f.GetInt("workers")
	}
	return ec
}

// session feeds frames into one temporal graph and writes the requested
// per-frame and final outputs.
type session struct {
	graph      *temporal.Graph
	table      *similarity.Table
	opts       []temporal.Option
	engine     config.EngineConfig
	params     temporal.Params
	overlayDir string

	textPath     string
	timelinePath string
	step         time.Duration
	dotPath      string
	save         bool
	name         string

	created int
	matched int
}

func newSession(cmd *cobra.Command) (*session, error) {
	ec := engineSettings(cmd)
	simPath, _ := cmd.Flags().GetString("similarity")
	table, err := loadTable(simPath)
	if err != nil {
		return nil, err
	}

	opts := []temporal.Option{
		temporal.WithLogger(logger),
		temporal.WithWorkers(ec.Workers),
	}
	if seq, _ := cmd.Flags().GetBool("sequential-ids"); seq {
		opts = append(opts, temporal.WithIDGenerator(temporal.SequentialIDs()))
	}

	s := &session{
		graph:  temporal.New(table, opts...),
		table:  table,
		opts:   opts,
		engine: ec,
		params: temporal.Params{Alpha: ec.Alpha, MinAssignmentConf: ec.MinConfidence},
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}

	f := cmd.Flags()
	s.overlayDir, _ = f.GetString("overlay-dir")
	s.textPath, _ = f.GetString("text")
	s.timelinePath, _ = f.GetString("timeline")
	s.step, _ = f.GetDuration("step")
	s.dotPath, _ = f.GetString("dot")
	s.save, _ = f.GetBool("save")
	s.name, _ = f.GetString("name")

	if s.overlayDir != "" {
		if err := os.MkdirAll(s.overlayDir, 0o755); err != nil {
			return nil, fmt.Errorf("create overlay dir: %w", err)
		}
	}
	return s, nil
}

// resume replaces the empty graph with a saved run and returns the next
// free frame id.
func (s *session) resume(cmd *cobra.Command, runID string) (int, error) {
	st, err := openStore()
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	run, err := resolveRun(cmd.Context(), st, runID)
	if err != nil {
		return 0, err
	}
	snap, err := st.Load(cmd.Context(), run.ID)
	if err != nil {
		return 0, err
	}
	g, err := temporal.Restore(*snap, s.table, s.opts...)
	if err != nil {
		return 0, err
	}
	s.graph = g
	logger.Info("resumed run", "id", run.ID, "frames", len(snap.Frames), "entities", len(snap.Entities))

	if last, ok := g.LastFrame(); ok {
		return last + 1, nil
	}
	return 0, nil
}

// insert builds the frame graph for triples and adds it to the graph.
func (s *session) insert(frameID int, triples []model.Triple) (*temporal.InsertResult, error) {
	fg := framegraph.Build(frameID, triples, s.engine.Epsilon)
	res, err := s.graph.Insert(fg, s.params)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameID, err)
	}
	s.created += res.Created
	s.matched += res.Matched

	if s.overlayDir != "" && len(res.Overlay.Items) > 0 {
		path := filepath.Join(s.overlayDir, fmt.Sprintf("frame_%05d.svg", frameID))
		if err := writeFile(path, func(f *os.File) error {
			return plot.WriteOverlaySVG(f, res.Overlay, plot.OverlayOptions{})
		}); err != nil {
			return nil, err
		}
	}

	logger.Info("frame", "id", frameID, "nodes", fg.Len(), "created", res.Created, "matched", res.Matched)
	return res, nil
}

// writeText rewrites the narrative and timeline outputs.
func (s *session) writeText() error {
	snap := s.graph.Snapshot()
	if s.textPath != "" {
		if err := os.WriteFile(s.textPath, []byte(narrative.Text(snap)+"\n"), 0o644); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}
	if s.timelinePath != "" {
		if err := os.WriteFile(s.timelinePath, []byte(narrative.Timeline(snap, s.step)), 0o644); err != nil {
			return fmt.Errorf("write timeline: %w", err)
		}
	}
	return nil
}

// summary is printed when a session finishes.
type summary struct {
	RunID    string `json:"run_id,omitempty"`
	Frames   int    `json:"frames"`
	Entities int    `json:"entities"`
	Edges    int    `json:"edges"`
	Created  int    `json:"created"`
	Matched  int    `json:"matched"`
}

// finish writes the final outputs and optionally saves the snapshot.
func (s *session) finish(cmd *cobra.Command) (*summary, error) {
	if err := s.writeText(); err != nil {
		return nil, err
	}
	snap := s.graph.Snapshot()

	if s.dotPath != "" {
		if err := writeFile(s.dotPath, func(f *os.File) error {
			return plot.WriteDOT(f, snap, plot.Options{Title: s.name})
		}); err != nil {
			return nil, err
		}
	}

	sum := &summary{
		Frames:   len(snap.Frames),
		Entities: len(snap.Entities),
		Edges:    len(snap.Edges),
		Created:  s.created,
		Matched:  s.matched,
	}

	if s.save {
		st, err := openStore()
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		run, err := st.Save(cmd.Context(), store.SaveParams{
			Name: s.name,
			Params: model.Params{
				Alpha:             s.params.Alpha,
				MinAssignmentConf: s.params.MinAssignmentConf,
				Epsilon:           s.engine.Epsilon,
			},
			Snapshot: snap,
		})
		if err != nil {
			return nil, fmt.Errorf("save: %w", err)
		}
		sum.RunID = run.ID
		logger.Info("saved run", "id", run.ID, "db", getDBPath())
	}
	return sum, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
