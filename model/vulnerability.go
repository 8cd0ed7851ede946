// Package model defines the value objects stored in the vulnerability graph.
package model

import (
	"github.com/google/uuid"
)

// Vulnerability is a software vulnerability with minimal information.
// External identifiers are stored as Alias records pointing at it.
type Vulnerability struct {
	Key     string `json:"_key,omitempty"`
	VulnID  string `json:"vuln_id"` // UUID assigned at creation
	Summary string `json:"summary,omitempty"`
	ObjType string `json:"objtype,omitempty"`
}

// NewVulnerability creates a Vulnerability with a fresh identifier.
func NewVulnerability(summary string) *Vulnerability {
	return &Vulnerability{
		VulnID:  uuid.New().String(),
		Summary: summary,
		ObjType: "Vulnerability",
	}
}

// ExternalID returns the external representation of the vulnerability id.
func (v *Vulnerability) ExternalID() string {
	return "VULN-" + v.VulnID
}

// Alias is a unique vulnerability identifier in some upstream database,
// such as CVE-2020-2233. Alias strings are globally unique and map to
// exactly one Vulnerability.
type Alias struct {
	Key              string `json:"_key,omitempty"`
	Alias            string `json:"alias"`
	VulnerabilityKey string `json:"vulnerability_key"`
	ObjType          string `json:"objtype,omitempty"`
}

// Reference points to an upstream document about a vulnerability, such as
// a distribution security advisory. Unique per (vulnerability, url,
// reference_id).
type Reference struct {
	Key              string     `json:"_key,omitempty"`
	VulnerabilityKey string     `json:"vulnerability_key,omitempty"`
	URL              string     `json:"url"`
	ReferenceID      string     `json:"reference_id,omitempty"`
	Severities       []Severity `json:"severities,omitempty"`
	ObjType          string     `json:"objtype,omitempty"`
}

// Severity is one scoring-system entry owned by a Reference. ScoringSystem
// must name a member of the scoring-system catalog. Score is derived from
// Value for CVSS vector strings and is zero otherwise.
type Severity struct {
	ScoringSystem string  `json:"scoring_system"`
	Value         string  `json:"value"`
	Score         float64 `json:"score,omitempty"`
}
