package align

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// problem binds correspondences to a parameter layout and frame for the
// duration of one fit. It is never shared between fits.
type problem struct {
	layout Layout
	frame  Frame
	center Point
	corr   Correspondences
}

// visit transforms every target (point correspondences first, then segment
// targets in segment order) and calls fn with the frame-local target vector,
// the transformed target, and the reference anchor it is measured against.
func (pr *problem) visit(sim Similarity, fn func(local, moved, anchor Point)) {
	m := RotationScale(sim.Theta, sim.Scale)
	offset := Point{}
	if pr.frame == FrameCentroid {
		offset = pr.center
	}

	for i, tp := range pr.corr.TargetPoints {
		moved := applyOne(tp, m, sim.Translation, pr.frame, pr.center)
		fn(tp.Sub(offset), moved, pr.corr.ReferencePoints[i])
	}
	for _, seg := range pr.corr.Segments {
		for _, tp := range seg.Targets {
			moved := applyOne(tp, m, sim.Translation, pr.frame, pr.center)
			fn(tp.Sub(offset), moved, ClosestPointOnSegment(moved, seg.Reference))
		}
	}
}

// evaluate returns the sum-of-squares objective and the residual vector for x.
func (pr *problem) evaluate(x []float64) (float64, []float64) {
	if pr.corr.NumResiduals() == 0 {
		return 0, []float64{}
	}

	residuals := make([]float64, 0, pr.corr.NumResiduals())
	pr.visit(pr.layout.Unpack(x), func(_, moved, anchor Point) {
		residuals = append(residuals, Distance(moved, anchor))
	})
	return floats.Dot(residuals, residuals), residuals
}

// objective is the scalar function handed to the minimizer.
func (pr *problem) objective(x []float64) float64 {
	f, _ := pr.evaluate(x)
	return f
}

// gradient writes d(objective)/dx into grad. Each squared residual has
// gradient 2*(moved - anchor) with respect to the moved point; the closest
// point on a segment moves with it only tangentially, so the same form holds
// for segment residuals.
func (pr *problem) gradient(grad, x []float64) {
	for i := range grad {
		grad[i] = 0
	}
	sim := pr.layout.Unpack(x)
	cos, sin := math.Cos(sim.Theta), math.Sin(sim.Theta)
	t, r, s := pr.layout.translation, pr.layout.rotation, pr.layout.scale

	pr.visit(sim, func(local, moved, anchor Point) {
		gx := 2 * (moved.X - anchor.X)
		gy := 2 * (moved.Y - anchor.Y)
		if t >= 0 {
			grad[t] += gx
			grad[t+1] += gy
		}
		if r >= 0 {
			dx := sim.Scale * (-sin*local.X - cos*local.Y)
			dy := sim.Scale * (cos*local.X - sin*local.Y)
			grad[r] += gx*dx + gy*dy
		}
		if s >= 0 {
			dx := cos*local.X - sin*local.Y
			dy := sin*local.X + cos*local.Y
			grad[s] += gx*dx + gy*dy
		}
	})
}

// Evaluate computes the objective and residuals for the optimization vector x
// laid out by layout. center is only used with FrameCentroid.
func Evaluate(x []float64, layout Layout, frame Frame, center Point, c Correspondences) (float64, []float64) {
	pr := &problem{layout: layout, frame: frame, center: center, corr: c}
	return pr.evaluate(x)
}

// Residuals recomputes the residual vector for an origin-frame similarity,
// as returned by Optimize. Reporting must go through here rather than
// re-deriving the transform.
func Residuals(sim Similarity, c Correspondences) []float64 {
	layout, _ := NewLayout(AllToggles())
	_, residuals := Evaluate(layout.Pack(sim), layout, FrameOrigin, Point{}, c)
	return residuals
}

// SumOfSquares returns the objective value for a residual vector.
func SumOfSquares(residuals []float64) float64 {
	return floats.Dot(residuals, residuals)
}
