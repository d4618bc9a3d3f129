package align

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultCalibrationCachePath is the default path for the last fitted calibration
const DefaultCalibrationCachePath = ".calibration-cache.json"

// CalibrationData is the persisted outcome of a scenario run
type CalibrationData struct {
	Dataset     string           `json:"dataset"`
	Modes       []string         `json:"modes,omitempty"`
	Scenarios   []ScenarioResult `json:"scenarios"`
	LastUpdated int64            `json:"lastUpdated"`
}

// LoadCalibration loads calibration data from a JSON cache file.
// A missing file is not an error and yields nil.
func LoadCalibration(path string) (*CalibrationData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No calibration file yet
		}
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}

	var cal CalibrationData
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parsing calibration file: %w", err)
	}

	return &cal, nil
}

// SaveCalibration writes calibration data to a JSON cache file, stamping
// LastUpdated.
func SaveCalibration(path string, cal *CalibrationData) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating calibration directory: %w", err)
	}

	cal.LastUpdated = time.Now().Unix()

	data, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling calibration data: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing calibration file: %w", err)
	}

	return nil
}

// Best returns the converged fitted scenario with the lowest mean residual.
// ok is false when no fitted scenario converged.
func (c *CalibrationData) Best() (best ScenarioResult, ok bool) {
	if c == nil {
		return ScenarioResult{}, false
	}
	for _, sr := range c.Scenarios {
		if !sr.Scenario.Toggles.Any() || !sr.Result.Converged {
			continue
		}
		if !ok || sr.MeanResidual < best.MeanResidual {
			best, ok = sr, true
		}
	}
	return best, ok
}

// Lookup returns the scenario result with the given label
func (c *CalibrationData) Lookup(label string) (ScenarioResult, bool) {
	if c == nil {
		return ScenarioResult{}, false
	}
	for _, sr := range c.Scenarios {
		if sr.Scenario.Label == label {
			return sr, true
		}
	}
	return ScenarioResult{}, false
}

// NeedsRecalibration checks if calibration should be refreshed
func (c *CalibrationData) NeedsRecalibration(maxAge time.Duration) bool {
	if c == nil || c.LastUpdated == 0 {
		return true
	}
	return time.Since(time.Unix(c.LastUpdated, 0)) > maxAge
}
