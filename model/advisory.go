package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// AffectedPackageRange describes one affected package of an advisory
// before resolution: a versionless package identity plus the textual
// vulnerable and patched range descriptors declared upstream.
type AffectedPackageRange struct {
	Type            string `json:"type"`
	Namespace       string `json:"namespace,omitempty"`
	Name            string `json:"name"`
	VulnerableRange string `json:"vulnerable_range,omitempty"`
	PatchedRange    string `json:"patched_range,omitempty"`
}

// Advisory is an immutable evidence record: the snapshot of one upstream
// vulnerability announcement as collected, before any resolution. Only
// DateImproved is ever stamped after creation.
type Advisory struct {
	Key              string                 `json:"_key,omitempty"`
	Aliases          []string               `json:"aliases"`
	Summary          string                 `json:"summary,omitempty"`
	AffectedPackages []AffectedPackageRange `json:"affected_packages"`
	References       []Reference            `json:"references"`
	DatePublished    *time.Time             `json:"date_published,omitempty"`
	DateCollected    time.Time              `json:"date_collected"`
	DateImproved     *time.Time             `json:"date_improved,omitempty"`
	CreatedBy        string                 `json:"created_by"`
	ContentSha       string                 `json:"content_sha"`
	ObjType          string                 `json:"objtype,omitempty"`
}

// advisoryIdentity is the canonical serialization the dedup key is
// computed over: byte-identical re-collection hashes to the same key.
type advisoryIdentity struct {
	Aliases          []string               `json:"aliases"`
	Summary          string                 `json:"summary"`
	AffectedPackages []AffectedPackageRange `json:"affected_packages"`
	References       []Reference            `json:"references"`
	DatePublished    *time.Time             `json:"date_published"`
}

// ComputeContentSha fills ContentSha from the advisory identity fields.
func (a *Advisory) ComputeContentSha() error {
	identity := advisoryIdentity{
		Aliases:          a.Aliases,
		Summary:          a.Summary,
		AffectedPackages: a.AffectedPackages,
		References:       a.References,
		DatePublished:    a.DatePublished,
	}
	payload, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	hash := sha256.Sum256(payload)
	a.ContentSha = hex.EncodeToString(hash[:])
	return nil
}
