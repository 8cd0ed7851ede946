package improve

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vulngraph/vulngraph-backend/internal/catalog"
	"github.com/vulngraph/vulngraph-backend/internal/resolver"
	"github.com/vulngraph/vulngraph-backend/model"
	"github.com/vulngraph/vulngraph-backend/util"
)

// AdvisorySource supplies the advisories an improver has not yet
// processed.
type AdvisorySource interface {
	UnimprovedAdvisories(ctx context.Context) ([]model.Advisory, error)
}

// DefaultImprover resolves each advisory's textual ranges against the
// version catalog and emits full-confidence inferences: one per affected
// package, view and range, pairing the vulnerable versions with the
// patched version that closes the range.
type DefaultImprover struct {
	source     AdvisorySource
	catalog    catalog.Provider
	views      ViewResolver
	confidence int
	logger     *zap.Logger
}

// NewDefaultImprover builds the default improver. confidence is the
// configured ceiling: advisories are primary evidence and their
// inferences carry the highest confidence. A nil views resolver renders
// every package under its identity view.
func NewDefaultImprover(source AdvisorySource, provider catalog.Provider, views ViewResolver, confidence int, logger *zap.Logger) *DefaultImprover {
	if views == nil {
		views = IdentityViews{}
	}
	return &DefaultImprover{
		source:     source,
		catalog:    provider,
		views:      views,
		confidence: confidence,
		logger:     logger,
	}
}

// Name implements Improver.
func (d *DefaultImprover) Name() string {
	return "default_improver"
}

// InterestingAdvisories implements Improver: every advisory not yet
// stamped with date_improved.
func (d *DefaultImprover) InterestingAdvisories(ctx context.Context) ([]model.Advisory, error) {
	return d.source.UnimprovedAdvisories(ctx)
}

// Inferences implements Improver. A malformed range or an unavailable
// catalog skips the affected entry or view with a warning; the rest of
// the advisory is still interpreted.
func (d *DefaultImprover) Inferences(ctx context.Context, advisory model.Advisory) ([]Inference, error) {
	var inferences []Inference

	for _, affected := range advisory.AffectedPackages {
		if affected.VulnerableRange == "" {
			continue
		}

		for _, view := range d.views.Views(affected) {
			known, err := d.catalog.Versions(ctx, view.CatalogKey)
			if err != nil {
				var unavailable *catalog.UnavailableError
				if errors.As(err, &unavailable) {
					d.logger.Sugar().Warnf("Version catalog unavailable for %s, skipping view: %v", view.CatalogKey, err)
					continue
				}
				return nil, err
			}

			viewInferences, err := d.resolveView(advisory, affected, view, known)
			if err != nil {
				var malformed *resolver.MalformedRangeError
				if errors.As(err, &malformed) {
					d.logger.Sugar().Warnf("Skipping affected package %s of advisory %s: %v", affected.Name, advisory.Key, err)
					break
				}
				return nil, err
			}
			inferences = append(inferences, viewInferences...)
		}
	}

	return inferences, nil
}

func (d *DefaultImprover) resolveView(advisory model.Advisory, affected model.AffectedPackageRange, view View, known []string) ([]Inference, error) {
	resolutions, err := resolver.ResolveDescriptor(view.Ecosystem, affected.VulnerableRange, known)
	if err != nil {
		return nil, err
	}

	// Versions the source declares as patched override the inferred
	// next-release fix and are never claimed vulnerable.
	explicit, err := explicitPatched(view.Ecosystem, affected.PatchedRange)
	if err != nil {
		return nil, err
	}

	var inferences []Inference
	for _, res := range resolutions {
		var vulnerable []*model.Package
		for _, version := range res.Vulnerable {
			if util.Contains(explicit, version) {
				continue
			}
			pkg, err := d.viewPackage(view, version)
			if err != nil {
				return nil, err
			}
			vulnerable = append(vulnerable, pkg)
		}

		fixed := res.Patched
		if len(explicit) > 0 {
			fixed = ""
		}

		inf := Inference{
			Aliases:          advisory.Aliases,
			Summary:          advisory.Summary,
			Confidence:       d.confidence,
			AffectedPackages: vulnerable,
			References:       advisory.References,
		}
		if fixed != "" {
			pkg, err := d.viewPackage(view, fixed)
			if err != nil {
				return nil, err
			}
			inf.FixedPackage = pkg
		}
		if len(inf.AffectedPackages) > 0 || inf.FixedPackage != nil {
			inferences = append(inferences, inf)
		}
	}

	for _, version := range explicit {
		pkg, err := d.viewPackage(view, version)
		if err != nil {
			return nil, err
		}
		inferences = append(inferences, Inference{
			Aliases:      advisory.Aliases,
			Summary:      advisory.Summary,
			Confidence:   d.confidence,
			FixedPackage: pkg,
			References:   advisory.References,
		})
	}

	return inferences, nil
}

func (d *DefaultImprover) viewPackage(view View, version string) (*model.Package, error) {
	return model.NewPackage(view.Type, view.Namespace, view.Name, version, nil, "")
}

// explicitPatched collects the versions named by a patched-range
// descriptor, in release order. Only single-version entries carry a
// concrete fixed release; bounded entries contribute their start.
func explicitPatched(ecosystem, descriptor string) ([]string, error) {
	if descriptor == "" {
		return nil, nil
	}
	ranges, err := resolver.Parse(descriptor)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, rng := range ranges {
		if rng.Start != "" && !util.Contains(versions, rng.Start) {
			versions = append(versions, rng.Start)
		}
	}
	return util.SortVersions(ecosystem, versions), nil
}
