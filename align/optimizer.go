package align

import (
	"fmt"
	"log"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Method selects the quasi-Newton minimizer.
type Method int

const (
	MethodBFGS Method = iota
	MethodLBFGS
)

// String returns the flag/config name of the method
func (m Method) String() string {
	switch m {
	case MethodBFGS:
		return "bfgs"
	case MethodLBFGS:
		return "lbfgs"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod parses "bfgs" or "lbfgs". Empty selects BFGS.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bfgs", "":
		return MethodBFGS, nil
	case "lbfgs", "l-bfgs":
		return MethodLBFGS, nil
	default:
		return 0, fmt.Errorf("unknown minimizer %q (want bfgs or lbfgs)", s)
	}
}

func (m Method) gonum() optimize.Method {
	if m == MethodLBFGS {
		return &optimize.LBFGS{}
	}
	return &optimize.BFGS{}
}

// DefaultGradientThreshold is the gradient tolerance per unit of coordinate
// magnitude and per residual. Optimize scales it by the problem so that large
// coordinates do not push the floating-point noise floor above it.
const DefaultGradientThreshold = 1e-9

// ResidualTolerance is the RMS residual, relative to the coordinate
// magnitude, at which a fit counts as exact and stops.
const ResidualTolerance = 1e-8

// Options tunes a single fit
type Options struct {
	Frame             Frame   `json:"frame" yaml:"-"`
	Method            Method  `json:"method" yaml:"-"`
	GradientThreshold float64 `json:"gradientThreshold,omitempty" yaml:"gradientThreshold,omitempty"` // 0 means DefaultGradientThreshold scaled to the problem; otherwise absolute
	MaxIterations     int     `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`         // 0 means no cap
}

// DefaultOptions fits about the target centroid with BFGS.
func DefaultOptions() Options {
	return Options{Frame: FrameCentroid, Method: MethodBFGS}
}

// Result is the outcome of Optimize. The embedded Similarity is always
// expressed in the origin frame, whatever frame the fit ran in.
type Result struct {
	Similarity
	Toggles      Toggles   `json:"toggles"`
	Frame        string    `json:"frame"`
	Objective    float64   `json:"objective"`
	Residuals    []float64 `json:"residuals"`
	Converged    bool      `json:"converged"`
	Status       string    `json:"status"`
	GradientNorm float64   `json:"gradientNorm"`
	Iterations   int       `json:"iterations"`
	Evaluations  int       `json:"evaluations"`
}

// Optimize fits the similarity transform mapping targets onto references,
// freeing only the groups enabled in t. A minimizer that stops short of its
// tolerance is not an error: the best iterate is returned with Converged false.
func Optimize(c Correspondences, t Toggles, opts Options) (Result, error) {
	layout, err := NewLayout(t)
	if err != nil {
		return Result{}, fmt.Errorf("building parameter layout: %w", err)
	}

	pr := &problem{layout: layout, frame: opts.Frame, corr: c}
	if opts.Frame == FrameCentroid {
		pr.center = Centroid(c.AllTargets())
	}

	p := optimize.Problem{
		Func: pr.objective,
		Grad: pr.gradient,
	}
	res, err := optimize.Minimize(p, layout.Initial(), fitSettings(c, opts), opts.Method.gonum())
	if res == nil {
		return Result{}, fmt.Errorf("minimizing objective: %w", err)
	}

	sim := layout.Unpack(res.X)
	if layout.rotation >= 0 {
		sim = sim.canonical()
	}
	if opts.Frame == FrameCentroid {
		sim.Translation = originTranslation(sim.Translation, sim.Theta, sim.Scale, pr.center)
	}

	result := Result{
		Similarity:  sim,
		Toggles:     t,
		Frame:       opts.Frame.String(),
		Converged:   converged(res.Status),
		Status:      res.Status.String(),
		Iterations:  res.MajorIterations,
		Evaluations: res.FuncEvaluations,
	}
	if len(res.Gradient) > 0 {
		result.GradientNorm = floats.Norm(res.Gradient, 2)
	}
	result.Residuals = Residuals(sim, c)
	result.Objective = SumOfSquares(result.Residuals)

	if !result.Converged {
		log.Printf("[FIT] %s fit stopped without converging: status=%s err=%v |grad|=%.3g",
			t, result.Status, err, result.GradientNorm)
	}

	return result, nil
}

// fitSettings derives the stopping rules from the size of the problem: the
// gradient threshold grows with coordinate magnitude and residual count, and
// an objective below n*(ResidualTolerance*magnitude)^2 is treated as an exact fit.
func fitSettings(c Correspondences, opts Options) *optimize.Settings {
	m := c.magnitude()
	n := math.Max(1, float64(c.NumResiduals()))
	settings := &optimize.Settings{
		GradientThreshold: DefaultGradientThreshold * m * n,
		FunctionThreshold: n * math.Pow(ResidualTolerance*m, 2),
		MajorIterations:   opts.MaxIterations,
	}
	if opts.GradientThreshold > 0 {
		settings.GradientThreshold = opts.GradientThreshold
	}
	return settings
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence,
		optimize.StepConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		return true
	default:
		return false
	}
}
