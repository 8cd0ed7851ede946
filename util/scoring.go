// Package util provides utility functions for the backend.
package util

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ScoringSystem describes one entry of the severity scoring-system
// catalog. The catalog is consumed as a fixed enumeration; severities
// naming an unknown system are rejected at normalization time.
type ScoringSystem struct {
	Identifier string `yaml:"identifier" json:"identifier"`
	Name       string `yaml:"name" json:"name"`
}

// Default scoring-system catalog. SCORING_CATALOG_PATH can point at a
// YAML file replacing this list.
var builtinScoringSystems = []ScoringSystem{
	{Identifier: "cvssv2", Name: "CVSSv2 Base Score"},
	{Identifier: "cvssv2_vector", Name: "CVSSv2 Vector"},
	{Identifier: "cvssv3", Name: "CVSSv3 Base Score"},
	{Identifier: "cvssv3_vector", Name: "CVSSv3 Vector"},
	{Identifier: "cvssv3.1", Name: "CVSSv3.1 Base Score"},
	{Identifier: "cvssv3.1_qr", Name: "CVSSv3.1 Qualitative Severity Rating"},
	{Identifier: "cvssv4", Name: "CVSSv4 Base Score"},
	{Identifier: "rhbs", Name: "RedHat Bugzilla severity"},
	{Identifier: "rhas", Name: "RedHat Aggregate severity"},
	{Identifier: "avgs", Name: "Archlinux Vulnerability Group Severity"},
	{Identifier: "generic_textual", Name: "Generic textual severity"},
}

// LoadScoringSystems returns the scoring-system catalog keyed by
// identifier, from the YAML file at path when non-empty, otherwise the
// builtin catalog.
func LoadScoringSystems(path string) (map[string]ScoringSystem, error) {
	systems := builtinScoringSystems

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read scoring catalog %s: %w", path, err)
		}
		var loaded []ScoringSystem
		if err := yaml.Unmarshal(content, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse scoring catalog %s: %w", path, err)
		}
		if len(loaded) > 0 {
			systems = loaded
		}
	}

	catalog := make(map[string]ScoringSystem, len(systems))
	for _, s := range systems {
		catalog[s.Identifier] = s
	}
	return catalog, nil
}
