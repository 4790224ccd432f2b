package temporal

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/graphene/internal/framegraph"
	"github.com/rcliao/graphene/internal/geometry"
	"github.com/rcliao/graphene/internal/model"
	"github.com/rcliao/graphene/internal/similarity"
)

func obj(name string, x0, y0, x1, y1 float64) model.Object {
	return model.Object{Name: name, Box: geometry.Box{XMin: x0, YMin: y0, XMax: x1, YMax: y1}}
}

func triple(s model.Object, pred string, o model.Object) model.Triple {
	return model.Triple{Subject: s, Predicate: pred, Object: o}
}

func newTestGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	opts = append([]Option{WithIDGenerator(SequentialIDs())}, opts...)
	return New(similarity.Default(), opts...)
}

func personOnChair(frame int) *framegraph.Graph {
	return framegraph.Build(frame, []model.Triple{
		triple(obj("person", 10, 10, 50, 90), "on", obj("chair", 5, 50, 55, 100)),
	}, 0)
}

func TestInsert_SameFrameTwiceMatches(t *testing.T) {
	g := newTestGraph(t)

	_, err := g.Insert(personOnChair(0), DefaultParams())
	require.NoError(t, err)
	res, err := g.Insert(personOnChair(1), DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Matched)
	for _, a := range res.Assignments {
		assert.False(t, a.Created)
	}
}

func TestInsert_NewClassCreatesEntity(t *testing.T) {
	for _, minConf := range []float64{-1, 0, 0.6} {
		g := newTestGraph(t)
		_, err := g.Insert(personOnChair(0), DefaultParams())
		require.NoError(t, err)

		fg := framegraph.Build(1, []model.Triple{
			triple(obj("zebra", 300, 300, 340, 340), "near", obj("fence", 400, 300, 500, 340)),
		}, 0)
		res, err := g.Insert(fg, Params{Alpha: 0.3, MinAssignmentConf: minConf})
		require.NoError(t, err)

		assert.Equal(t, 4, g.Len())
		require.Len(t, res.Assignments, 2)
		assert.True(t, res.Assignments[0].Created)
		assert.Equal(t, "zebra_0", res.Assignments[0].EntityID)
		assert.True(t, res.Assignments[1].Created)
	}
}

func TestInsert_UnseenClassWithSharedNeighborScoresHalfAlpha(t *testing.T) {
	catOnMat := framegraph.Build(0, []model.Triple{
		triple(obj("cat", 0, 0, 10, 10), "on", obj("mat", 100, 100, 200, 200)),
	}, 0)
	dogOnMat := framegraph.Build(1, []model.Triple{
		triple(obj("dog", 50, 50, 60, 60), "on", obj("mat", 100, 100, 200, 200)),
	}, 0)

	for _, tt := range []struct {
		minConf float64
		created int
	}{
		{minConf: 0.6, created: 1},
		{minConf: 0.1, created: 0},
	} {
		g := newTestGraph(t)
		_, err := g.Insert(catOnMat, DefaultParams())
		require.NoError(t, err)

		res, err := g.Insert(dogOnMat, Params{Alpha: 0.3, MinAssignmentConf: tt.minConf})
		require.NoError(t, err)
		assert.InDelta(t, 0.15, res.Assignments[0].Score, 1e-9, "minConf=%v", tt.minConf)
		assert.Equal(t, tt.created, res.Created, "minConf=%v", tt.minConf)
		if tt.created == 0 {
			assert.Equal(t, "cat_0", res.Assignments[0].EntityID)
		}
	}
}

func TestInsert_ContinuityExtendsRecord(t *testing.T) {
	g := newTestGraph(t)
	for _, f := range []int{3, 4, 5} {
		_, err := g.Insert(personOnChair(f), DefaultParams())
		require.NoError(t, err)
	}

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, 3, edges[0].AppearanceTime)
	assert.Equal(t, 5, edges[0].LastPresence)
}

func TestInsert_DiscontinuityOpensNewRecord(t *testing.T) {
	g := newTestGraph(t)
	for _, f := range []int{3, 5} {
		_, err := g.Insert(personOnChair(f), DefaultParams())
		require.NoError(t, err)
	}

	hist := g.History("person_0", "chair_0")
	require.Len(t, hist, 2)
	assert.Equal(t, [2]int{3, 3}, [2]int{hist[0].AppearanceTime, hist[0].LastPresence})
	assert.Equal(t, [2]int{5, 5}, [2]int{hist[1].AppearanceTime, hist[1].LastPresence})
}

func TestInsert_PersonOnChairThreeFrames(t *testing.T) {
	g := newTestGraph(t)
	for f := 0; f < 3; f++ {
		_, err := g.Insert(personOnChair(f), DefaultParams())
		require.NoError(t, err)
	}

	ents := g.Entities()
	require.Len(t, ents, 2)
	assert.Equal(t, "person", ents[0].Name)
	assert.Equal(t, "chair", ents[1].Name)
	assert.Equal(t, []int{0, 1, 2}, ents[0].Frames)

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, model.EdgeRecord{
		From: "person_0", To: "chair_0", Relation: "on",
		AppearanceTime: 0, LastPresence: 2,
	}, edges[0])
	assert.Equal(t, []string{"chair_0"}, g.Neighbors("person_0"))
}

func TestInsert_NameSimilarityAndOverlapMerge(t *testing.T) {
	table, err := similarity.New([]similarity.Pair{{A: "cup", B: "glass", Weight: 0.8}})
	require.NoError(t, err)
	g := New(table, WithIDGenerator(SequentialIDs()))
	p := Params{Alpha: 0.3, MinAssignmentConf: 0.3}

	tableObj := obj("table", 20, 20, 60, 60)
	_, err = g.Insert(framegraph.Build(0, []model.Triple{
		triple(obj("cup", 0, 0, 10, 10), "on", tableObj),
	}, 0), p)
	require.NoError(t, err)

	res, err := g.Insert(framegraph.Build(1, []model.Triple{
		triple(obj("glass", 2, 0, 12, 10), "on", tableObj),
	}, 0), p)
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	require.Len(t, res.Assignments, 2)
	assert.Equal(t, "cup_0", res.Assignments[0].EntityID)
	assert.InDelta(t, 0.83, res.Assignments[0].Score, 1e-9)

	e, ok := g.Entity("cup_0")
	require.True(t, ok)
	assert.Equal(t, "glass", e.Name)
	assert.Equal(t, []int{0, 1}, e.Frames)

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, 1, edges[0].LastPresence)
}

func TestInsert_NodesNeverShareEntity(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Insert(framegraph.Build(0, []model.Triple{
		triple(obj("person", 0, 0, 10, 10), "near", obj("dog", 50, 50, 60, 60)),
	}, 0), DefaultParams())
	require.NoError(t, err)

	// Two people in the next frame; only one may inherit person_0.
	res, err := g.Insert(framegraph.Build(1, []model.Triple{
		triple(obj("person", 0, 0, 10, 10), "near", obj("person", 1, 0, 11, 10)),
	}, 0.01), DefaultParams())
	require.NoError(t, err)

	require.Len(t, res.Assignments, 2)
	assert.NotEqual(t, res.Assignments[0].EntityID, res.Assignments[1].EntityID)
	assert.Equal(t, "person_0", res.Assignments[0].EntityID)
}

func TestInsert_NonMonotonicFrame(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Insert(personOnChair(5), DefaultParams())
	require.NoError(t, err)

	before := g.Snapshot()
	for _, f := range []int{5, 4} {
		_, err = g.Insert(personOnChair(f), DefaultParams())
		assert.ErrorIs(t, err, ErrNonMonotonicFrame)
	}
	assert.Equal(t, before, g.Snapshot())
}

func TestInsert_DanglingEdge(t *testing.T) {
	g := newTestGraph(t)
	fg := framegraph.New(0, 0)
	fg.AddNode(obj("person", 0, 0, 1, 1))
	fg.AddEdge(0, 3, "on")

	_, err := g.Insert(fg, DefaultParams())
	assert.ErrorIs(t, err, ErrDanglingEdge)
	assert.ErrorIs(t, err, framegraph.ErrDanglingEdge)
	assert.Equal(t, 0, g.Len())
	_, ok := g.LastFrame()
	assert.False(t, ok)
}

func TestInsert_InvalidParams(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Insert(personOnChair(0), Params{Alpha: 1.5})
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Equal(t, 0, g.Len())
}

func TestInsert_EmptyFrameIsNoop(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Insert(personOnChair(0), DefaultParams())
	require.NoError(t, err)

	res, err := g.Insert(framegraph.New(1, 0), DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, res.Assignments)
	assert.Equal(t, []int{0}, g.Frames())

	// Frame 1 was never recorded, so frame 2 does not continue frame 0.
	_, err = g.Insert(personOnChair(2), DefaultParams())
	require.NoError(t, err)
	assert.Len(t, g.Edges(), 2)
}

func TestInsert_ParallelScoringMatchesSequential(t *testing.T) {
	frames := []*framegraph.Graph{
		framegraph.Build(0, []model.Triple{
			triple(obj("person", 10, 10, 50, 90), "on", obj("chair", 5, 50, 55, 100)),
			triple(obj("person", 10, 10, 50, 90), "holding", obj("cup", 40, 40, 48, 50)),
			triple(obj("dog", 100, 80, 140, 100), "near", obj("chair", 5, 50, 55, 100)),
		}, 0),
		framegraph.Build(1, []model.Triple{
			triple(obj("man", 12, 10, 52, 90), "on", obj("chair", 5, 50, 55, 100)),
			triple(obj("dog", 90, 80, 130, 100), "near", obj("man", 12, 10, 52, 90)),
		}, 0),
		framegraph.Build(2, []model.Triple{
			triple(obj("person", 14, 10, 54, 90), "holding", obj("glass", 41, 40, 49, 50)),
			triple(obj("cat", 200, 0, 220, 20), "on", obj("table", 150, 0, 250, 60)),
		}, 0),
	}

	run := func(workers int) model.Snapshot {
		g := newTestGraph(t, WithWorkers(workers))
		for _, fg := range frames {
			_, err := g.Insert(fg, DefaultParams())
			require.NoError(t, err)
		}
		return g.Snapshot()
	}

	assert.Equal(t, run(1), run(8))
}

func TestOverlay(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Insert(personOnChair(0), DefaultParams())
	require.NoError(t, err)
	res, err := g.Insert(framegraph.Build(1, []model.Triple{
		triple(obj("person", 10, 10, 50, 90), "holding", obj("umbrella", 0, 0, 20, 20)),
	}, 0), DefaultParams())
	require.NoError(t, err)

	ov := g.Overlay()
	assert.Equal(t, 1, ov.FrameID)
	require.Len(t, ov.Items, 2)
	assert.Equal(t, "person_0", ov.Items[0].EntityID)
	assert.False(t, ov.Items[0].Created)
	assert.Equal(t, "umbrella_0", ov.Items[1].EntityID)
	assert.True(t, ov.Items[1].Created)
	assert.ElementsMatch(t, ov.Items, res.Overlay.Items)
}

func TestRestoreThenContinue(t *testing.T) {
	g := newTestGraph(t)
	for f := 0; f < 2; f++ {
		_, err := g.Insert(personOnChair(f), DefaultParams())
		require.NoError(t, err)
	}

	r, err := Restore(g.Snapshot(), similarity.Default(), WithIDGenerator(SequentialIDs()))
	require.NoError(t, err)
	assert.Equal(t, g.Snapshot(), r.Snapshot())

	_, err = r.Insert(personOnChair(2), DefaultParams())
	require.NoError(t, err)
	edges := r.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, 2, edges[0].LastPresence)
	assert.Equal(t, 2, r.Len())
}

func TestRestore_Corrupt(t *testing.T) {
	good := model.Snapshot{
		Frames:   []int{0, 1},
		Entities: []model.Entity{{ID: "a", Name: "person", Frames: []int{0, 1}}},
	}
	_, err := Restore(good, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		snap model.Snapshot
	}{
		{"unsorted frames", model.Snapshot{Frames: []int{1, 0}}},
		{"duplicate frame", model.Snapshot{Frames: []int{1, 1}}},
		{"duplicate entity", model.Snapshot{Entities: []model.Entity{{ID: "a"}, {ID: "a"}}}},
		{"unknown endpoint", model.Snapshot{
			Entities: []model.Entity{{ID: "a"}},
			Edges:    []model.EdgeRecord{{From: "a", To: "b", Relation: "on"}},
		}},
		{"inverted interval", model.Snapshot{
			Entities: []model.Entity{{ID: "a"}},
			Edges:    []model.EdgeRecord{{From: "a", To: "a", Relation: "on", AppearanceTime: 3, LastPresence: 1}},
		}},
		{"entity frame never inserted", model.Snapshot{
			Frames:   []int{0, 1},
			Entities: []model.Entity{{ID: "a", Frames: []int{0, 2}}},
		}},
		{"record past last frame", model.Snapshot{
			Frames:   []int{0, 1},
			Entities: []model.Entity{{ID: "a", Frames: []int{0, 1}}},
			Edges:    []model.EdgeRecord{{From: "a", To: "a", Relation: "on", AppearanceTime: 1, LastPresence: 2}},
		}},
		{"record without frames", model.Snapshot{
			Entities: []model.Entity{{ID: "a"}},
			Edges:    []model.EdgeRecord{{From: "a", To: "a", Relation: "on"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.snap, nil)
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}

func TestInsert_LogsSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	g := newTestGraph(t, WithLogger(logger))

	_, err := g.Insert(personOnChair(0), DefaultParams())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "inserted frame")
	assert.Contains(t, buf.String(), "created=2")
}

func TestIDGenerators(t *testing.T) {
	seq := SequentialIDs()
	assert.Equal(t, "person_0", seq.NewID("person"))
	assert.Equal(t, "person_1", seq.NewID("Person"))
	assert.Equal(t, "traffic-light_0", seq.NewID("traffic light"))

	id := UUIDs().NewID("chair")
	assert.Regexp(t, `^chair_[0-9a-f]{8}$`, id)
}

func TestNewID_Collision(t *testing.T) {
	g := New(nil, WithIDGenerator(IDFunc(func(string) string { return "x" })))
	_, err := g.Insert(framegraph.Build(0, []model.Triple{
		triple(obj("a", 0, 0, 1, 1), "near", obj("b", 5, 5, 6, 6)),
	}, 0), DefaultParams())
	require.NoError(t, err)

	ids := []string{g.Entities()[0].ID, g.Entities()[1].ID}
	assert.Equal(t, []string{"x", "x-1"}, ids)
}
