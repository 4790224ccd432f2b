// Package model defines the core scene and temporal graph data types.
package model

import (
	"fmt"

	"github.com/rcliao/graphene/internal/geometry"
)

// Object is a single detection in one frame: a class name and its box.
// Objects are never compared by value; frame graphs deduplicate them with
// ApproximatelySame.
type Object struct {
	Name string       `json:"name"`
	Box  geometry.Box `json:"box"`
}

// ApproximatelySame reports whether o and other carry the same class name
// and their boxes overlap closely enough that 1 - BoxSimilarity < epsilon.
func (o Object) ApproximatelySame(other Object, epsilon float64) bool {
	if o.Name != other.Name {
		return false
	}
	return 1-geometry.BoxSimilarity(o.Box, other.Box) < epsilon
}

func (o Object) String() string { return o.Name }

// Triple is one subject-predicate-object relation produced by a relation
// detector for a single frame.
type Triple struct {
	Subject   Object `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Object `json:"object"`
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s", t.Subject.Name, t.Predicate, t.Object.Name)
}

// RawObject is the detector's wire shape for a subject or object.
type RawObject struct {
	ID   string  `json:"id"`
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// RawPredicate is the detector's wire shape for a predicate.
type RawPredicate struct {
	ID string `json:"id"`
}

// RawTriple is one record of a frame file as written by the relation
// detector.
type RawTriple struct {
	Subject   RawObject    `json:"subject"`
	Predicate RawPredicate `json:"predicate"`
	Object    RawObject    `json:"object"`
}

// Triple converts the wire record into a Triple.
func (r RawTriple) Triple() Triple {
	return Triple{
		Subject:   r.Subject.Object(),
		Predicate: r.Predicate.ID,
		Object:    r.Object.Object(),
	}
}

// Object converts the wire record into an Object.
func (r RawObject) Object() Object {
	return Object{
		Name: r.ID,
		Box:  geometry.Box{XMin: r.XMin, YMin: r.YMin, XMax: r.XMax, YMax: r.YMax},
	}
}
