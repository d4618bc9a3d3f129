package align

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// toOrb converts a Point to an orb.Point
func toOrb(p Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return planar.Distance(toOrb(a), toOrb(b))
}

// ClosestPointOnSegment returns the point of s nearest to p.
// The projection parameter is clamped to [0, |s|]; a zero-length segment
// returns its start point.
func ClosestPointOnSegment(p Point, s Segment) Point {
	v := s.End.Sub(s.Start)
	length := math.Hypot(v.X, v.Y)
	if length == 0 {
		return s.Start
	}

	ux, uy := v.X/length, v.Y/length
	w := p.Sub(s.Start)
	t := w.X*ux + w.Y*uy
	switch {
	case t <= 0:
		return s.Start
	case t >= length:
		return s.End
	default:
		return Point{X: s.Start.X + t*ux, Y: s.Start.Y + t*uy}
	}
}

// DistancePointToSegment returns the shortest distance from p to segment s.
func DistancePointToSegment(p Point, s Segment) float64 {
	return Distance(p, ClosestPointOnSegment(p, s))
}

// Centroid returns the mean of points, or the origin for an empty set.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// Bounds returns the bounding box of every point in the given sets.
func Bounds(sets ...[]Point) orb.Bound {
	var mp orb.MultiPoint
	for _, set := range sets {
		for _, p := range set {
			mp = append(mp, toOrb(p))
		}
	}
	if len(mp) == 0 {
		return orb.Bound{}
	}
	return mp.Bound()
}
