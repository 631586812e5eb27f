package scoring

import (
	"embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed weights.yaml
var defaultConfigFS embed.FS

// Weights holds the relative contribution of each component to the total.
// They must sum to 1.0.
type Weights struct {
	Budget     float64 `yaml:"budget"`
	Timeline   float64 `yaml:"timeline"`
	Company    float64 `yaml:"company"`
	PainPoints float64 `yaml:"pain_points"`
	Tech       float64 `yaml:"tech"`
	Engagement float64 `yaml:"engagement"`
}

// Config is the scoring engine configuration. The compatibility lists are a
// configuration concern, not a correctness concern: tests rely only on the
// ordering properties, not on specific list entries.
type Config struct {
	Version        string   `yaml:"version"`
	Weights        Weights  `yaml:"weights"`
	CompatibleTech []string `yaml:"compatible_tech"`
	LegacyTech     []string `yaml:"legacy_tech"`
}

// DefaultConfig returns the embedded configuration.
func DefaultConfig() Config {
	data, err := defaultConfigFS.ReadFile("weights.yaml")
	if err != nil {
		panic("scoring: embedded weights.yaml missing: " + err.Error())
	}
	cfg, err := parseConfig(data)
	if err != nil {
		panic("scoring: embedded weights.yaml invalid: " + err.Error())
	}
	return cfg
}

// LoadConfig reads a configuration override from disk. An empty path returns
// the embedded defaults.
func LoadConfig(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scoring config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse scoring config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Version == "" {
		return fmt.Errorf("scoring config: version is required")
	}

	sum := c.Weights.Budget + c.Weights.Timeline + c.Weights.Company +
		c.Weights.PainPoints + c.Weights.Tech + c.Weights.Engagement
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("scoring config: weights must sum to 1.0, got %.3f", sum)
	}

	for _, w := range []float64{
		c.Weights.Budget, c.Weights.Timeline, c.Weights.Company,
		c.Weights.PainPoints, c.Weights.Tech, c.Weights.Engagement,
	} {
		if w < 0 {
			return fmt.Errorf("scoring config: weights must be non-negative")
		}
	}

	return nil
}
