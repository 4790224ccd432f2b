package model

import (
	"time"

	"github.com/rcliao/graphene/internal/geometry"
)

// Entity is a persistent identity in the temporal graph.
type Entity struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Box       geometry.Box `json:"box"`
	Frames    []int        `json:"frames"`
	FirstSeen int          `json:"first_seen"`
}

// LastSeen returns the most recent frame the entity was observed in.
func (e Entity) LastSeen() int {
	if len(e.Frames) == 0 {
		return e.FirstSeen
	}
	return e.Frames[len(e.Frames)-1]
}

// SeenIn reports whether the entity was observed in frame.
func (e Entity) SeenIn(frame int) bool {
	for _, f := range e.Frames {
		if f == frame {
			return true
		}
		if f > frame {
			return false
		}
	}
	return false
}

// EdgeRecord is one interval during which a relation held between two
// entities. AppearanceTime <= LastPresence always holds.
type EdgeRecord struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Relation       string `json:"relation"`
	AppearanceTime int    `json:"appearance_time"`
	LastPresence   int    `json:"last_presence"`
}

// AliveIn reports whether the record covers frame.
func (r EdgeRecord) AliveIn(frame int) bool {
	return r.AppearanceTime <= frame && frame <= r.LastPresence
}

// Snapshot is a read-only copy of the temporal graph state. Entities are in
// creation order and edges in record creation order.
type Snapshot struct {
	Frames   []int        `json:"frames"`
	Entities []Entity     `json:"entities"`
	Edges    []EdgeRecord `json:"edges"`
}

// EntityByID returns the entity with the given id.
func (s Snapshot) EntityByID(id string) (Entity, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// OverlayItem places one entity in the current frame.
type OverlayItem struct {
	EntityID string       `json:"entity_id"`
	Name     string       `json:"name"`
	Box      geometry.Box `json:"box"`
	Created  bool         `json:"created,omitempty"`
}

// Overlay holds the annotations for a single frame.
type Overlay struct {
	FrameID int           `json:"frame_id"`
	Items   []OverlayItem `json:"items"`
}

// Params are the assignment knobs a run was produced with.
type Params struct {
	Alpha             float64 `json:"alpha"`
	MinAssignmentConf float64 `json:"min_assignment_conf"`
	Epsilon           float64 `json:"epsilon"`
}

// Run is a saved snapshot in the store.
type Run struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Params    Params     `json:"params"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	Frames    int        `json:"frames"`
	Entities  int        `json:"entities"`
	Edges     int        `json:"edges"`
}

// RunExport is the portable form of a saved run.
type RunExport struct {
	Run      Run      `json:"run"`
	Snapshot Snapshot `json:"snapshot"`
}
