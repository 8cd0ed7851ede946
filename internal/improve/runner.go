package improve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/internal/merge"
	"github.com/vulngraph/vulngraph-backend/model"
)

// GraphWriter converges inference content into graph nodes. Edges are
// not written here; they go through the merge engine.
type GraphWriter interface {
	// EnsureVulnerability returns the vulnerability the aliases converge
	// on, creating it and any missing alias records. Aliases pointing at
	// more than one existing vulnerability return an AliasConflictError.
	EnsureVulnerability(ctx context.Context, aliases []string, summary string) (*model.Vulnerability, error)
	// EnsurePackage upserts a package on its canonical purl.
	EnsurePackage(ctx context.Context, pkg *model.Package) (*model.Package, error)
	// EnsureReference upserts a reference for a vulnerability, refreshing
	// its severities.
	EnsureReference(ctx context.Context, vulnKey string, ref model.Reference) error
	// StampImproved records that an advisory has been processed.
	StampImproved(ctx context.Context, advisoryKey string) error
}

// AliasConflictError reports aliases that point at distinct existing
// vulnerabilities. The inference carrying them is skipped rather than
// guessing which vulnerability it belongs to.
type AliasConflictError struct {
	Aliases           []string
	VulnerabilityKeys []string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("aliases %s point at multiple vulnerabilities %s",
		strings.Join(e.Aliases, ", "), strings.Join(e.VulnerabilityKeys, ", "))
}

// Runner drives improvers over their interesting advisories with a
// bounded worker pool. One failing advisory is logged and skipped; it
// never aborts the run or blocks other advisories.
type Runner struct {
	improvers []Improver
	engine    *merge.Engine
	graph     GraphWriter
	workers   int
	logger    *zap.Logger
}

// NewRunner builds a runner. workers bounds how many advisories are
// improved concurrently.
func NewRunner(improvers []Improver, engine *merge.Engine, graph GraphWriter, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		improvers: improvers,
		engine:    engine,
		graph:     graph,
		workers:   workers,
		logger:    logger,
	}
}

// Run executes every improver once.
func (r *Runner) Run(ctx context.Context) error {
	for _, improver := range r.improvers {
		if err := r.runImprover(ctx, improver); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runImprover(ctx context.Context, improver Improver) error {
	advisories, err := improver.InterestingAdvisories(ctx)
	if err != nil {
		return fmt.Errorf("listing advisories for %s: %w", improver.Name(), err)
	}

	r.logger.Sugar().Infof("Improver %s: processing %d advisories", improver.Name(), len(advisories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, advisory := range advisories {
		advisory := advisory
		g.Go(func() error {
			if err := r.improveAdvisory(gctx, improver, advisory); err != nil {
				// Failures stay contained to their advisory: log and
				// leave it unstamped for the next run.
				r.logger.Sugar().Errorf("Improver %s failed on advisory %s: %v", improver.Name(), advisory.Key, err)
				return nil
			}
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) improveAdvisory(ctx context.Context, improver Improver, advisory model.Advisory) error {
	inferences, err := improver.Inferences(ctx, advisory)
	if err != nil {
		return err
	}

	for _, inf := range inferences {
		if err := r.applyInference(ctx, improver.Name(), inf); err != nil {
			return err
		}
	}

	return r.graph.StampImproved(ctx, advisory.Key)
}

func (r *Runner) applyInference(ctx context.Context, createdBy string, inf Inference) error {
	if err := inf.Validate(r.engine.Ceiling()); err != nil {
		r.logger.Sugar().Warnf("Skipping invalid inference from %s: %v", createdBy, err)
		return nil
	}

	vuln, err := r.graph.EnsureVulnerability(ctx, inf.Aliases, inf.Summary)
	if err != nil {
		var conflict *AliasConflictError
		if errors.As(err, &conflict) {
			r.logger.Sugar().Warnf("Skipping inference from %s: %v", createdBy, err)
			return nil
		}
		return err
	}

	for _, ref := range inf.References {
		if err := r.graph.EnsureReference(ctx, vuln.Key, ref); err != nil {
			return err
		}
	}

	vulnID := database.ColVulnerability + "/" + vuln.Key

	for _, pkg := range inf.AffectedPackages {
		stored, err := r.graph.EnsurePackage(ctx, pkg)
		if err != nil {
			return err
		}
		if _, err := r.engine.Apply(ctx, merge.Claim{
			PackageID:       database.ColPackage + "/" + stored.Key,
			VulnerabilityID: vulnID,
			Fix:             false,
			Confidence:      inf.Confidence,
			CreatedBy:       createdBy,
		}); err != nil {
			return err
		}
	}

	if inf.FixedPackage != nil {
		stored, err := r.graph.EnsurePackage(ctx, inf.FixedPackage)
		if err != nil {
			return err
		}
		if _, err := r.engine.Apply(ctx, merge.Claim{
			PackageID:       database.ColPackage + "/" + stored.Key,
			VulnerabilityID: vulnID,
			Fix:             true,
			Confidence:      inf.Confidence,
			CreatedBy:       createdBy,
		}); err != nil {
			return err
		}
	}

	return nil
}
