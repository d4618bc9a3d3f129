package align

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScenarios_Defaults(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleDataset))
	require.NoError(t, err)
	ds = ds.Filter(ModeOptimize)

	results, err := RunScenarios(context.Background(), ds, DefaultScenarios(), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, sc := range DefaultScenarios() {
		assert.Equal(t, sc.Label, results[i].Scenario.Label, "results keep scenario order")
	}

	initial := results[0]
	assert.Equal(t, "NotFitted", initial.Result.Status)
	assert.Equal(t, IdentitySimilarity(), initial.Result.Similarity)
	require.Len(t, initial.Residuals, 4)
	assert.Equal(t, "Fountain", initial.Residuals[0].Key)
	assert.Equal(t, 5.0, initial.Residuals[0].Residual)
	assert.Equal(t, "North Wall_Point2", initial.Residuals[3].Key)
	assert.Equal(t, 4.0, initial.Residuals[3].Residual)

	// Every point in the dataset is offset by (3, 4), so translation alone
	// fits exactly.
	tr := results[1]
	assert.InDelta(t, -3, tr.Result.Translation.X, 1e-6)
	assert.InDelta(t, -4, tr.Result.Translation.Y, 1e-6)
	assert.Equal(t, 0.0, tr.MeanResidual)
	for _, sr := range results[1:] {
		assert.LessOrEqual(t, sr.MeanResidual, 1e-4, sr.Scenario.Label)
	}
}

func TestRunScenarios_InvalidScenarioStillReportsIdentity(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleDataset))
	require.NoError(t, err)

	results, err := RunScenarios(context.Background(), ds, []Scenario{{Label: "Frozen"}}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Result.Converged)
	// Three points at 5 and two segment targets at 4.
	assert.InDelta(t, 4.6, results[0].MeanResidual, 1e-12)
}

func TestRunScenarios_Cancelled(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleDataset))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RunScenarios(ctx, ds, DefaultScenarios(), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScenarioSlug(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Initial", "initial"},
		{"Translation Only", "translation-only"},
		{"Translation + Rotation + Scale", "translation-rotation-scale"},
		{"  Custom #2 ", "custom-2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Scenario{Label: tt.label}.Slug())
	}
}

func TestColorByName(t *testing.T) {
	assert.Equal(t, namedColors["orange"], ColorByName("Orange"))
	assert.Equal(t, namedColors["gray"], ColorByName("chartreuse"))
	assert.Equal(t, namedColors["blue"], DefaultScenarios()[0].Color())
}

func TestNewScenarioResult_Rounding(t *testing.T) {
	res := Result{Residuals: []float64{0.123456, 1.99999, 0.5}}
	sr := newScenarioResult(Scenario{Label: "x"}, res, []string{"a", "b"})

	require.Len(t, sr.Residuals, 3)
	assert.Equal(t, KeyedResidual{Key: "a", Residual: 0.1235}, sr.Residuals[0])
	assert.Equal(t, KeyedResidual{Key: "b", Residual: 2}, sr.Residuals[1])
	assert.Equal(t, "residual_3", sr.Residuals[2].Key)
	assert.InDelta(t, 0.8745, sr.MeanResidual, 1e-12)
}
