// Package config carries the service configuration: environment
// variables first, optionally overridden by a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/vulngraph/vulngraph-backend/util"
)

// Config is the runtime configuration of the backend.
type Config struct {
	// MaxConfidence is the upper bound of the confidence scale. Improvers
	// claim relative to it; it is never hardwired in inference code.
	MaxConfidence int `yaml:"max_confidence"`

	// ScoringSystemsPath optionally extends the built-in scoring-system
	// catalog from a YAML file.
	ScoringSystemsPath string `yaml:"scoring_systems_path"`

	// ImproveWorkers bounds how many advisories are improved concurrently.
	ImproveWorkers int `yaml:"improve_workers"`

	// KafkaBrokers is the broker list for the advisory-events topic.
	KafkaBrokers []string `yaml:"kafka_brokers"`

	// GitHubToken authenticates version catalog lookups against the
	// GitHub tags API. Empty means anonymous, heavily rate limited.
	GitHubToken string `yaml:"github_token"`
}

// Load reads configuration from the environment and, when CONFIG_FILE
// is set, overrides it from that YAML file.
func Load() (Config, error) {
	cfg := Config{
		MaxConfidence:      100,
		ScoringSystemsPath: util.GetEnvDefault("SCORING_CATALOG_PATH", ""),
		ImproveWorkers:     8,
		GitHubToken:        util.GetEnvDefault("GITHUB_TOKEN", ""),
	}

	if v := os.Getenv("MAX_CONFIDENCE"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return cfg, fmt.Errorf("invalid MAX_CONFIDENCE %q", v)
		}
		cfg.MaxConfidence = parsed
	}

	if v := os.Getenv("IMPROVE_WORKERS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return cfg, fmt.Errorf("invalid IMPROVE_WORKERS %q", v)
		}
		cfg.ImproveWorkers = parsed
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	} else {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if cfg.MaxConfidence < 1 {
		return cfg, fmt.Errorf("max_confidence must be positive, got %d", cfg.MaxConfidence)
	}

	return cfg, nil
}
