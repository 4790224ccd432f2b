package plot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/graphene/internal/geometry"
	"github.com/rcliao/graphene/internal/model"
)

func TestLayers(t *testing.T) {
	few := []int{0, 1, 2}
	assert.Equal(t, few, Layers(few, DefaultOptions()))

	var many []int
	for i := 0; i < 25; i++ {
		many = append(many, i*2)
	}
	assert.Equal(t, []int{0, 20, 40}, Layers(many, DefaultOptions()))
	assert.Equal(t, []int{0, 20, 40}, Layers(many, Options{}))
}

func TestWriteDOT(t *testing.T) {
	snap := model.Snapshot{
		Frames: []int{0, 1},
		Entities: []model.Entity{
			{ID: "person_0", Name: "person", Frames: []int{0, 1}},
			{ID: "chair_0", Name: "chair", Frames: []int{0}},
		},
		Edges: []model.EdgeRecord{
			{From: "person_0", To: "chair_0", Relation: "on", AppearanceTime: 0, LastPresence: 0},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, snap, Options{Title: "demo"}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph temporal {"))
	assert.Contains(t, out, `label="demo";`)
	assert.Contains(t, out, `label="Frame 0";`)
	assert.Contains(t, out, `label="Frame 1";`)
	assert.Contains(t, out, `"f0/person_0" -> "f0/chair_0" [label="on"];`)
	assert.NotContains(t, out, `"f1/chair_0"`)
	assert.Contains(t, out, `"f0/person_0" -> "f1/person_0" [style=dashed`)
	assert.Equal(t, 1, strings.Count(out, "style=dashed"))
}

func TestWriteOverlaySVG(t *testing.T) {
	ov := model.Overlay{
		FrameID: 3,
		Items: []model.OverlayItem{
			{EntityID: "person_0", Name: "person", Box: geometry.Box{XMin: 10, YMin: 20, XMax: 50, YMax: 90}},
			{EntityID: "cup_<1>", Name: "cup", Box: geometry.Box{XMin: 60, YMin: 60, XMax: 70, YMax: 80}, Created: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOverlaySVG(&buf, ov, OverlayOptions{Background: "frame.png"}))
	out := buf.String()

	assert.Contains(t, out, `width="70" height="90"`)
	assert.Contains(t, out, "<title>Frame 3</title>")
	assert.Contains(t, out, `xlink:href="frame.png"`)
	assert.Contains(t, out, `<rect x="10" y="20" width="40" height="70"`)
	assert.Contains(t, out, `stroke-width="4"`)
	assert.Contains(t, out, "cup_&lt;1&gt;")
	assert.Equal(t, 2, strings.Count(out, "<rect"))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
}
