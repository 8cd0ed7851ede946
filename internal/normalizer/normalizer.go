// Package normalizer validates and reshapes raw advisory documents into
// typed, deduplicated Advisory evidence records.
package normalizer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vulngraph/vulngraph-backend/model"
	"github.com/vulngraph/vulngraph-backend/util"
)

// RawAdvisory is the normalized advisory document produced by an importer
// before validation and storage.
type RawAdvisory struct {
	Aliases          []string                     `json:"aliases"`
	Summary          string                       `json:"summary,omitempty"`
	AffectedPackages []model.AffectedPackageRange `json:"affected_packages"`
	References       []model.Reference            `json:"references"`
	DatePublished    *time.Time                   `json:"date_published,omitempty"`
}

// AdvisoryStore persists advisories keyed by their content sha. Upsert
// must be idempotent: storing a byte-identical advisory again returns the
// existing record with created=false.
type AdvisoryStore interface {
	UpsertAdvisory(ctx context.Context, advisory *model.Advisory) (*model.Advisory, bool, error)
}

// Normalizer turns raw advisory documents into stored Advisory records.
// It never touches edges.
type Normalizer struct {
	store   AdvisoryStore
	scoring map[string]util.ScoringSystem
	logger  *zap.Logger
}

// New builds a Normalizer over the given store and scoring-system catalog.
func New(store AdvisoryStore, scoring map[string]util.ScoringSystem, logger *zap.Logger) *Normalizer {
	return &Normalizer{store: store, scoring: scoring, logger: logger}
}

// Normalize validates the raw document, computes the dedup key and stores
// the advisory. Re-collection of byte-identical input returns the
// existing record (created=false). Validation failures surface as typed
// errors and skip the document; they never corrupt stored state.
func (n *Normalizer) Normalize(ctx context.Context, raw RawAdvisory, createdBy string) (*model.Advisory, bool, error) {
	if err := n.validate(raw, createdBy); err != nil {
		return nil, false, err
	}

	advisory := &model.Advisory{
		Aliases:          raw.Aliases,
		Summary:          raw.Summary,
		AffectedPackages: raw.AffectedPackages,
		References:       enrichReferences(raw.References),
		DatePublished:    raw.DatePublished,
		DateCollected:    time.Now().UTC(),
		CreatedBy:        createdBy,
		ObjType:          "Advisory",
	}
	if advisory.Aliases == nil {
		advisory.Aliases = []string{}
	}
	if advisory.AffectedPackages == nil {
		advisory.AffectedPackages = []model.AffectedPackageRange{}
	}
	if advisory.References == nil {
		advisory.References = []model.Reference{}
	}

	if err := advisory.ComputeContentSha(); err != nil {
		return nil, false, err
	}

	stored, created, err := n.store.UpsertAdvisory(ctx, advisory)
	if err != nil {
		return nil, false, err
	}

	if created {
		n.logger.Sugar().Infof("New advisory with aliases %v, created_by: %s", stored.Aliases, stored.CreatedBy)
	} else {
		n.logger.Sugar().Debugf("Advisory with aliases %v already exists. Skipped.", stored.Aliases)
	}

	return stored, created, nil
}

func (n *Normalizer) validate(raw RawAdvisory, createdBy string) error {
	if len(createdBy) > model.MaxCreatedByLen {
		return &model.FieldTooLongError{Field: "created_by", Len: len(createdBy), Max: model.MaxCreatedByLen}
	}

	for _, alias := range raw.Aliases {
		if len(alias) > model.MaxAliasLen {
			return &model.FieldTooLongError{Field: "alias", Len: len(alias), Max: model.MaxAliasLen}
		}
	}

	for _, affected := range raw.AffectedPackages {
		pkg := model.Package{
			Type:      affected.Type,
			Namespace: affected.Namespace,
			Name:      affected.Name,
		}
		if err := pkg.Validate(); err != nil {
			return err
		}
	}

	for _, ref := range raw.References {
		if len(ref.URL) > model.MaxURLLen {
			return &model.FieldTooLongError{Field: "url", Len: len(ref.URL), Max: model.MaxURLLen}
		}
		if len(ref.ReferenceID) > model.MaxReferenceIDLen {
			return &model.FieldTooLongError{Field: "reference_id", Len: len(ref.ReferenceID), Max: model.MaxReferenceIDLen}
		}
		for _, sev := range ref.Severities {
			if len(sev.ScoringSystem) > model.MaxScoringSystemLen {
				return &model.FieldTooLongError{Field: "scoring_system", Len: len(sev.ScoringSystem), Max: model.MaxScoringSystemLen}
			}
			if len(sev.Value) > model.MaxSeverityValueLen {
				return &model.FieldTooLongError{Field: "severity_value", Len: len(sev.Value), Max: model.MaxSeverityValueLen}
			}
			if _, known := n.scoring[sev.ScoringSystem]; !known {
				return fmt.Errorf("unknown scoring system %q", sev.ScoringSystem)
			}
		}
	}

	return nil
}

// enrichReferences derives a numeric base score for CVSS vector severity
// values so downstream queries can rank without reparsing vectors.
func enrichReferences(refs []model.Reference) []model.Reference {
	enriched := make([]model.Reference, len(refs))
	for i, ref := range refs {
		enriched[i] = ref
		enriched[i].ObjType = "Reference"
		if len(ref.Severities) == 0 {
			continue
		}
		// Copy before scoring: the raw document's severities must stay
		// untouched.
		severities := make([]model.Severity, len(ref.Severities))
		copy(severities, ref.Severities)
		for j, sev := range severities {
			if sev.Score == 0 {
				severities[j].Score = util.CalculateCVSSScore(sev.Value)
			}
		}
		enriched[i].Severities = severities
	}
	return enriched
}
