// Package geometry provides axis-aligned bounding boxes and the overlap
// metric used to compare detections across frames.
package geometry

import "math"

// Box is an axis-aligned bounding box. Units are whatever the detector
// produced (pixels or normalized), but must be consistent within a run.
type Box struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// FromCentre builds a box from a centre point plus width and height, the
// shape YOLO-style detectors emit.
func FromCentre(cx, cy, w, h float64) Box {
	return Box{
		XMin: cx - w/2,
		YMin: cy - h/2,
		XMax: cx + w/2,
		YMax: cy + h/2,
	}
}

// Width returns the horizontal extent, never negative.
func (b Box) Width() float64 { return math.Max(0, b.XMax-b.XMin) }

// Height returns the vertical extent, never negative.
func (b Box) Height() float64 { return math.Max(0, b.YMax-b.YMin) }

// Area returns the box area. Inverted or flat boxes have area 0.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// Valid reports whether the box has a positive area.
func (b Box) Valid() bool { return b.Area() > 0 }

// Within reports whether b lies strictly inside outer.
func (b Box) Within(outer Box) bool {
	return b.XMin > outer.XMin && b.YMin > outer.YMin &&
		b.XMax < outer.XMax && b.YMax < outer.YMax
}

// Intersect returns the overlapping region of a and b. The result has zero
// area when the boxes do not overlap.
func Intersect(a, b Box) Box {
	return Box{
		XMin: math.Max(a.XMin, b.XMin),
		YMin: math.Max(a.YMin, b.YMin),
		XMax: math.Min(a.XMax, b.XMax),
		YMax: math.Min(a.YMax, b.YMax),
	}
}

// BoxSimilarity is the intersection area divided by the larger of the two
// box areas. A box nested inside a much larger one therefore scores low,
// while two near-identical boxes score close to 1. Disjoint boxes and
// degenerate (zero-area) boxes score 0.
func BoxSimilarity(a, b Box) float64 {
	larger := math.Max(a.Area(), b.Area())
	if larger <= 0 {
		return 0
	}
	inter := Intersect(a, b).Area()
	if inter <= 0 {
		return 0
	}
	return inter / larger
}
