package framegraph

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/graphene/internal/geometry"
	"github.com/rcliao/graphene/internal/model"
)

func obj(name string, x0, y0, x1, y1 float64) model.Object {
	return model.Object{Name: name, Box: geometry.Box{XMin: x0, YMin: y0, XMax: x1, YMax: y1}}
}

func TestBuild_MergesNearDuplicates(t *testing.T) {
	person := obj("person", 10, 10, 50, 100)
	personJitter := obj("person", 11, 10, 51, 99)
	chair := obj("chair", 20, 60, 60, 110)
	cup := obj("cup", 70, 40, 80, 55)

	g := Build(0, []model.Triple{
		{Subject: person, Predicate: "on", Object: chair},
		{Subject: personJitter, Predicate: "holding", Object: cup},
	}, DefaultEpsilon)

	require.Equal(t, 3, g.Len(), "jittered person must merge into the first person node")
	assert.Equal(t, person, g.Node(0), "first-seen node survives the merge")
	assert.Equal(t, []int{1, 2}, g.Successors(0))
	assert.Len(t, g.Edges(), 2)
}

func TestBuild_DifferentNamesStaySeparate(t *testing.T) {
	a := obj("cup", 0, 0, 10, 10)
	b := obj("glass", 0, 0, 10, 10)
	g := Build(0, []model.Triple{{Subject: a, Predicate: "near", Object: b}}, DefaultEpsilon)
	assert.Equal(t, 2, g.Len())
}

func TestBuild_FirstSeenWinsAmongThree(t *testing.T) {
	// b is close to both a and c, but a and c are too far apart to merge.
	a := obj("box", 0, 0, 10, 10)
	b := obj("box", 1, 0, 11, 10)
	c := obj("box", 2.5, 0, 12.5, 10)
	table := obj("table", 0, 10, 100, 20)

	order1 := Build(0, []model.Triple{
		{Subject: a, Predicate: "on", Object: table},
		{Subject: c, Predicate: "on", Object: table},
		{Subject: b, Predicate: "on", Object: table},
	}, 0.2)
	require.Equal(t, 3, order1.Len())
	assert.Equal(t, 0, order1.ClosestNode(b), "b merges into a, the first match in insertion order")

	order2 := Build(0, []model.Triple{
		{Subject: b, Predicate: "on", Object: table},
		{Subject: a, Predicate: "on", Object: table},
		{Subject: c, Predicate: "on", Object: table},
	}, 0.2)
	assert.Equal(t, 2, order2.Len(), "a and c both merge into b")
	assert.Equal(t, b, order2.Node(0))
}

func TestAddEdge_Idempotent(t *testing.T) {
	g := New(3, 0)
	assert.Equal(t, DefaultEpsilon, g.Epsilon)
	s := g.AddNode(obj("man", 0, 0, 1, 1))
	o := g.AddNode(obj("hat", 0, 0, 1, 1))
	g.AddEdge(s, o, "wearing")
	g.AddEdge(s, o, "wearing")
	g.AddEdge(s, o, "has")
	assert.Len(t, g.Edges(), 2)
	assert.Equal(t, []int{o}, g.Successors(s))
}

func TestValidate(t *testing.T) {
	g := New(7, 0)
	g.AddNode(obj("man", 0, 0, 1, 1))
	require.NoError(t, g.Validate())

	g.AddEdge(0, 4, "on")
	err := g.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDanglingEdge))
}

func TestTriples(t *testing.T) {
	person := obj("person", 10, 10, 50, 100)
	chair := obj("chair", 20, 60, 60, 110)
	g := Build(0, []model.Triple{{Subject: person, Predicate: "on", Object: chair}}, DefaultEpsilon)
	assert.Equal(t, []model.Triple{{Subject: person, Predicate: "on", Object: chair}}, g.Triples())
}

const frameJSON = `[
  {"subject": {"id": "person", "xmin": 10, "ymin": 10, "xmax": 50, "ymax": 100},
   "predicate": {"id": "on"},
   "object": {"id": "chair", "xmin": 20, "ymin": 60, "xmax": 60, "ymax": 110}}
]`

func TestReadTriples(t *testing.T) {
	triples, err := ReadTriples(strings.NewReader(frameJSON))
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "person on chair", triples[0].String())
	assert.Equal(t, 110.0, triples[0].Object.Box.YMax)
}

func TestReadTriples_Invalid(t *testing.T) {
	_, err := ReadTriples(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)

	_, err = ReadTriples(strings.NewReader(`[{"subject": {"id": "a"}, "predicate": {}, "object": {"id": "b"}}]`))
	assert.Error(t, err)
}

func TestListFrameFilesAndLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002.json", "000.json", "001.JSON", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(frameJSON), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	files, err := ListFrameFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "000.json", filepath.Base(files[0]))
	assert.Equal(t, "002.json", filepath.Base(files[2]))

	triples, err := LoadFile(files[0])
	require.NoError(t, err)
	assert.Len(t, triples, 1)
}

func TestMergeWindow(t *testing.T) {
	tr := model.Triple{Subject: obj("a", 0, 0, 1, 1), Predicate: "on", Object: obj("b", 0, 0, 1, 1)}
	frames := [][]model.Triple{{tr}, {tr}, {tr}, {tr}, {tr}}

	merged := MergeWindow(frames, 2)
	require.Len(t, merged, 3)
	assert.Len(t, merged[0], 2)
	assert.Len(t, merged[2], 1, "trailing partial window is kept")

	assert.Equal(t, frames, MergeWindow(frames, 1))

	g := Build(0, merged[0], DefaultEpsilon)
	assert.Equal(t, 2, g.Len(), "duplicates from merged frames collapse in the frame graph")
}
