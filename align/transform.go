package align

import (
	"fmt"
	"math"
	"strings"
)

// Matrix2 is a 2x2 row-major matrix
type Matrix2 [2][2]float64

// RotationScale returns scale * R(theta) where R is the counter-clockwise
// rotation matrix.
func RotationScale(theta, scale float64) Matrix2 {
	cos := math.Cos(theta)
	sin := math.Sin(theta)
	return Matrix2{
		{scale * cos, -scale * sin},
		{scale * sin, scale * cos},
	}
}

// Apply returns M*p
func (m Matrix2) Apply(p Point) Point {
	return Point{
		X: m[0][0]*p.X + m[0][1]*p.Y,
		Y: m[1][0]*p.X + m[1][1]*p.Y,
	}
}

// Frame selects the point rotation and scale are expressed about.
type Frame int

const (
	// FrameOrigin applies p' = M*p + t.
	FrameOrigin Frame = iota
	// FrameCentroid applies p' = M*(p - c) + c + t, with c the target centroid.
	FrameCentroid
)

// String returns the flag/config name of the frame
func (f Frame) String() string {
	switch f {
	case FrameOrigin:
		return "origin"
	case FrameCentroid:
		return "centroid"
	default:
		return fmt.Sprintf("Frame(%d)", int(f))
	}
}

// ParseFrame parses "origin" or "centroid".
func ParseFrame(s string) (Frame, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "origin":
		return FrameOrigin, nil
	case "centroid", "":
		return FrameCentroid, nil
	default:
		return 0, fmt.Errorf("unknown frame %q (want origin or centroid)", s)
	}
}

// applyOne transforms p with matrix m and translation t. For FrameCentroid,
// rotation and scale act about center.
func applyOne(p Point, m Matrix2, t Point, frame Frame, center Point) Point {
	if frame == FrameCentroid {
		return m.Apply(p.Sub(center)).Add(center).Add(t)
	}
	return m.Apply(p).Add(t)
}

// Apply maps a target point into the reference frame.
func (s Similarity) Apply(p Point) Point {
	return RotationScale(s.Theta, s.Scale).Apply(p).Add(s.Translation)
}

// ApplyAll maps every point in points into the reference frame.
func (s Similarity) ApplyAll(points []Point) []Point {
	return TransformPoints(points, s.Affine())
}

// Affine converts the similarity into an AffineMatrix
func (s Similarity) Affine() AffineMatrix {
	m := RotationScale(s.Theta, s.Scale)
	return AffineMatrix{
		A: m[0][0], B: m[0][1], Tx: s.Translation.X,
		C: m[1][0], D: m[1][1], Ty: s.Translation.Y,
	}
}

// Degrees returns Theta in degrees
func (s Similarity) Degrees() float64 {
	return s.Theta * 180 / math.Pi
}

// canonical returns the same map with a non-negative scale and theta wrapped
// into (-pi, pi]. (theta, s) and (theta+pi, -s) describe one transform.
func (s Similarity) canonical() Similarity {
	if s.Scale < 0 {
		s.Scale = -s.Scale
		s.Theta += math.Pi
	}
	s.Theta = wrapAngle(s.Theta)
	return s
}

// wrapAngle maps theta into (-pi, pi].
func wrapAngle(theta float64) float64 {
	theta = math.Remainder(theta, 2*math.Pi)
	if theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}

// originTranslation rewrites a centroid-frame translation as the equivalent
// origin-frame translation: t + c - s*R(theta)*c.
func originTranslation(t Point, theta, scale float64, center Point) Point {
	return t.Add(center).Sub(RotationScale(theta, scale).Apply(center))
}

// TransformPoint applies an affine transform to a point
// x' = a*x + b*y + tx
// y' = c*x + d*y + ty
func TransformPoint(p Point, m AffineMatrix) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.Tx,
		Y: m.C*p.X + m.D*p.Y + m.Ty,
	}
}

// TransformPoints applies an affine transform to multiple points
func TransformPoints(points []Point, m AffineMatrix) []Point {
	result := make([]Point, len(points))
	for i, p := range points {
		result[i] = TransformPoint(p, m)
	}
	return result
}

// Determinant returns a*d - b*c
func (m AffineMatrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// InvertMatrix computes the inverse of an affine transform.
// ok is false when the matrix is singular.
func InvertMatrix(m AffineMatrix) (inv AffineMatrix, ok bool) {
	det := m.Determinant()
	if det == 0 || math.IsNaN(det) {
		return Identity(), false
	}

	invDet := 1.0 / det
	return AffineMatrix{
		A:  m.D * invDet,
		B:  -m.B * invDet,
		Tx: (m.B*m.Ty - m.D*m.Tx) * invDet,
		C:  -m.C * invDet,
		D:  m.A * invDet,
		Ty: (m.C*m.Tx - m.A*m.Ty) * invDet,
	}, true
}
