package align

import (
	"errors"
	"math"
)

// ErrInvalidConfiguration is returned when no parameter group is free.
var ErrInvalidConfiguration = errors.New("no optimization parameters enabled")

// Point represents a 2D coordinate
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p + q
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Mul returns p scaled by k
func (p Point) Mul(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// Segment is an ordered pair of points. Start == End is a valid, degenerate segment.
type Segment struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// SegmentMatch pairs a reference segment with the target points that should
// fall on it once transformed.
type SegmentMatch struct {
	Reference Segment `json:"reference"`
	Targets   []Point `json:"targets"`
}

// Correspondences holds everything a fit is computed from.
// ReferencePoints and TargetPoints are index-aligned.
type Correspondences struct {
	ReferencePoints []Point        `json:"referencePoints"`
	TargetPoints    []Point        `json:"targetPoints"`
	Segments        []SegmentMatch `json:"segments"`
}

// NumResiduals returns the length of the residual vector for c.
func (c Correspondences) NumResiduals() int {
	n := len(c.TargetPoints)
	for _, s := range c.Segments {
		n += len(s.Targets)
	}
	return n
}

// AllTargets returns the point-correspondence targets followed by every
// segment target, in residual order.
func (c Correspondences) AllTargets() []Point {
	out := make([]Point, 0, c.NumResiduals())
	out = append(out, c.TargetPoints...)
	for _, s := range c.Segments {
		out = append(out, s.Targets...)
	}
	return out
}

// magnitude returns the largest absolute coordinate in c, at least 1.
func (c Correspondences) magnitude() float64 {
	m := 1.0
	grow := func(p Point) {
		m = math.Max(m, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	for _, p := range c.ReferencePoints {
		grow(p)
	}
	for _, p := range c.TargetPoints {
		grow(p)
	}
	for _, s := range c.Segments {
		grow(s.Reference.Start)
		grow(s.Reference.End)
		for _, p := range s.Targets {
			grow(p)
		}
	}
	return m
}

// Similarity is a uniform-scale, rotation and translation transform that maps
// target coordinates into the reference frame: p' = Scale*R(Theta)*p + Translation.
type Similarity struct {
	Translation Point   `json:"translation"`
	Theta       float64 `json:"theta"` // radians
	Scale       float64 `json:"scale"`
}

// IdentitySimilarity returns the transform that leaves every point in place.
func IdentitySimilarity() Similarity {
	return Similarity{Scale: 1}
}

// AffineMatrix for 2D transforms: x' = ax + by + tx, y' = cx + dy + ty
type AffineMatrix struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity returns an identity matrix (no transformation)
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: 0, C: 0, D: 1, Ty: 0}
}
