package align

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResidualChart(t *testing.T) {
	_, results := fittedSample(t)

	p, err := ResidualChart(results)
	require.NoError(t, err)
	assert.Equal(t, "Residuals by scenario", p.Title.Text)

	var buf bytes.Buffer
	require.NoError(t, chartWriter(results, "svg")(&buf))
	svg := buf.String()
	for _, sr := range results {
		assert.Contains(t, svg, sr.Scenario.Label, "legend entry")
	}
	for _, kr := range results[0].Residuals {
		assert.Contains(t, svg, kr.Key, "axis label")
	}
}

func TestResidualChart_Empty(t *testing.T) {
	p, err := ResidualChart(nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestWriteResidualChart(t *testing.T) {
	_, results := fittedSample(t)

	var buf bytes.Buffer
	require.NoError(t, WriteResidualChart(&buf, results))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestRenderChartFile(t *testing.T) {
	_, results := fittedSample(t)
	dir := t.TempDir()

	svgPath := filepath.Join(dir, "residuals.svg")
	require.NoError(t, RenderChartFile(svgPath, results))
	data, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<svg"))

	require.NoError(t, RenderChartFile(filepath.Join(dir, "residuals.png"), results))
	assert.Error(t, RenderChartFile(filepath.Join(dir, "residuals.txt"), results))
}
