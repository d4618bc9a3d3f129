package align

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ResidualChart builds a grouped bar chart of per-key residuals, one group
// per residual key and one bar per scenario.
func ResidualChart(results []ScenarioResult) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Residuals by scenario"
	p.Y.Label.Text = "Residual"
	p.Legend.Top = true

	if len(results) == 0 {
		return p, nil
	}

	barWidth := vg.Points(8)
	n := len(results)
	for i, sr := range results {
		values := make(plotter.Values, len(sr.Residuals))
		for j, kr := range sr.Residuals {
			values[j] = kr.Residual
		}
		if len(values) == 0 {
			continue
		}

		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return nil, fmt.Errorf("building bars for %q: %w", sr.Scenario.Label, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = sr.Scenario.Color()
		bars.Offset = barWidth * vg.Length(float64(i)-float64(n-1)/2)

		p.Add(bars)
		p.Legend.Add(fmt.Sprintf("%s (mean %.4f)", sr.Scenario.Label, sr.MeanResidual), bars)
	}

	names := make([]string, len(results[0].Residuals))
	for j, kr := range results[0].Residuals {
		names[j] = kr.Key
	}
	p.NominalX(names...)

	return p, nil
}

// chartWriter renders the residual chart in the given format ("png", "svg")
func chartWriter(results []ScenarioResult, format string) func(io.Writer) error {
	return func(w io.Writer) error {
		p, err := ResidualChart(results)
		if err != nil {
			return err
		}
		width := vg.Length(4+len(chartKeys(results))) * vg.Centimeter * 2
		wt, err := p.WriterTo(width, 10*vg.Centimeter, format)
		if err != nil {
			return fmt.Errorf("creating %s chart writer: %w", format, err)
		}
		_, err = wt.WriteTo(w)
		return err
	}
}

func chartKeys(results []ScenarioResult) []KeyedResidual {
	if len(results) == 0 {
		return nil
	}
	return results[0].Residuals
}

// WriteResidualChart renders the residual chart to w as PNG
func WriteResidualChart(w io.Writer, results []ScenarioResult) error {
	return chartWriter(results, "png")(w)
}

// RenderChartFile renders the residual chart to path (.png or .svg)
func RenderChartFile(path string, results []ScenarioResult) error {
	return writeByExtension(path, chartWriter(results, "svg"), chartWriter(results, "png"))
}
