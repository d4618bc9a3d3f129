package align

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// OutputConfig names the artifacts written after a run. Empty disables one.
type OutputConfig struct {
	Dir              string `yaml:"dir,omitempty"`
	GeoJSON          string `yaml:"geojson,omitempty"`
	Overlay          string `yaml:"overlay,omitempty"` // .svg or .png
	Chart            string `yaml:"chart,omitempty"`   // .png or .svg
	CalibrationCache string `yaml:"calibrationCache,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	Dataset           string       `yaml:"dataset"`
	Modes             []string     `yaml:"modes,omitempty"`
	Frame             string       `yaml:"frame,omitempty"`  // origin or centroid (default)
	Method            string       `yaml:"method,omitempty"` // bfgs (default) or lbfgs
	GradientThreshold float64      `yaml:"gradientThreshold,omitempty"`
	MaxIterations     int          `yaml:"maxIterations,omitempty"`
	Scenarios         []Scenario   `yaml:"scenarios,omitempty"`
	Output            OutputConfig `yaml:"output,omitempty"`
	MQTT              MQTTConfig   `yaml:"mqtt,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Modes:  []string{ModeOptimize},
		Frame:  FrameCentroid.String(),
		Method: MethodBFGS.String(),
		Output: OutputConfig{CalibrationCache: DefaultCalibrationCachePath},
	}
}

// LoadConfig loads the configuration from a YAML file, filling defaults for
// omitted fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks enumerations and scenario definitions
func (c *Config) Validate() error {
	if _, err := ParseFrame(c.Frame); err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	if _, err := ParseMethod(c.Method); err != nil {
		return fmt.Errorf("method: %w", err)
	}
	if c.GradientThreshold < 0 {
		return fmt.Errorf("gradientThreshold must not be negative")
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must not be negative")
	}
	for i, sc := range c.Scenarios {
		if sc.Label == "" {
			return fmt.Errorf("scenarios[%d].label is required", i)
		}
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Options builds the fit options described by the config
func (c *Config) Options() (Options, error) {
	frame, err := ParseFrame(c.Frame)
	if err != nil {
		return Options{}, err
	}
	method, err := ParseMethod(c.Method)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Frame:             frame,
		Method:            method,
		GradientThreshold: c.GradientThreshold,
		MaxIterations:     c.MaxIterations,
	}, nil
}

// ScenarioList returns the configured scenarios, or the defaults when none
// are configured.
func (c *Config) ScenarioList() []Scenario {
	if len(c.Scenarios) == 0 {
		return DefaultScenarios()
	}
	return c.Scenarios
}

// ModeList returns the configured modes, defaulting to "optimize"
func (c *Config) ModeList() []string {
	if len(c.Modes) == 0 {
		return []string{ModeOptimize}
	}
	return c.Modes
}
