package align

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Scenario is one named fit configuration. A scenario with no toggles is
// reported with the identity transform instead of being fitted.
type Scenario struct {
	Label     string  `json:"label" yaml:"label"`
	ColorName string  `json:"color" yaml:"color"`
	Toggles   Toggles `json:"toggles" yaml:"toggles"`
}

// Color returns the scenario's palette colour
func (s Scenario) Color() color.NRGBA {
	return ColorByName(s.ColorName)
}

var namedColors = map[string]color.NRGBA{
	"blue":   {31, 119, 180, 255},
	"green":  {44, 160, 44, 255},
	"purple": {148, 103, 189, 255},
	"orange": {255, 127, 14, 255},
	"red":    {214, 39, 40, 255},
	"gray":   {127, 127, 127, 255},
}

// ColorByName resolves a palette name, falling back to gray.
func ColorByName(name string) color.NRGBA {
	if c, ok := namedColors[strings.ToLower(name)]; ok {
		return c
	}
	return namedColors["gray"]
}

// DefaultScenarios returns the calibration report's four standard runs:
// identity, translation only, translation+rotation, and the full similarity.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Label: "Initial", ColorName: "blue"},
		{Label: "Translation Only", ColorName: "green", Toggles: Toggles{Translation: true}},
		{Label: "Translation + Rotation", ColorName: "purple", Toggles: Toggles{Translation: true, Rotation: true}},
		{Label: "Translation + Rotation + Scale", ColorName: "orange", Toggles: AllToggles()},
	}
}

// Slug returns a lower-case, dash-separated form of the label for topics and
// file names.
func (s Scenario) Slug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s.Label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// KeyedResidual is a residual labelled with the dataset key it belongs to.
type KeyedResidual struct {
	Key      string  `json:"key"`
	Residual float64 `json:"residual"`
}

// ScenarioResult is the fitted transform and residual report of one scenario
type ScenarioResult struct {
	Scenario     Scenario        `json:"scenario"`
	Result       Result          `json:"result"`
	Residuals    []KeyedResidual `json:"residuals"`
	MeanResidual float64         `json:"meanResidual"`
}

// RunScenarios fits each scenario against the dataset. Scenarios are
// independent and run concurrently; results keep the input order.
func RunScenarios(ctx context.Context, ds *Dataset, scenarios []Scenario, opts Options) ([]ScenarioResult, error) {
	corr := ds.Correspondences()
	keys := ds.ResidualKeys()
	results := make([]ScenarioResult, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := runScenario(corr, sc, opts)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Label, err)
			}
			results[i] = newScenarioResult(sc, res, keys)
			log.Printf("[FIT] %-32s dx=%.4f dy=%.4f theta=%.4f° scale=%.6f mean=%.4f converged=%v",
				sc.Label, res.Translation.X, res.Translation.Y, res.Degrees(), res.Scale,
				results[i].MeanResidual, res.Converged)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runScenario(corr Correspondences, sc Scenario, opts Options) (Result, error) {
	if !sc.Toggles.Any() {
		residuals := Residuals(IdentitySimilarity(), corr)
		return Result{
			Similarity: IdentitySimilarity(),
			Frame:      FrameOrigin.String(),
			Objective:  SumOfSquares(residuals),
			Residuals:  residuals,
			Converged:  true,
			Status:     "NotFitted",
		}, nil
	}
	return Optimize(corr, sc.Toggles, opts)
}

func newScenarioResult(sc Scenario, res Result, keys []string) ScenarioResult {
	sr := ScenarioResult{Scenario: sc, Result: res}
	rounded := make([]float64, len(res.Residuals))
	for i, r := range res.Residuals {
		rounded[i] = round4(r)
		key := fmt.Sprintf("residual_%d", i+1)
		if i < len(keys) {
			key = keys[i]
		}
		sr.Residuals = append(sr.Residuals, KeyedResidual{Key: key, Residual: rounded[i]})
	}
	if len(rounded) > 0 {
		sr.MeanResidual = round4(stat.Mean(rounded, nil))
	}
	return sr
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
