// Package importer feeds upstream advisory documents through the
// normalizer and tracks each source's import high-water mark.
package importer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/internal/normalizer"
	"github.com/vulngraph/vulngraph-backend/util"
)

// Importer collects raw advisory documents from one upstream source.
// since is the end of the previous successful run; sources that cannot
// filter server-side may ignore it and return everything (the content
// sha dedup absorbs re-collection).
type Importer interface {
	Name() string
	Advisories(ctx context.Context, since time.Time) ([]normalizer.RawAdvisory, error)
}

// Stats summarizes one import run.
type Stats struct {
	Collected    int
	Created      int
	Deduplicated int
	Skipped      int
}

// Runner drives importers through the normalizer. A document failing
// validation is logged and skipped; it never aborts the batch.
type Runner struct {
	db         database.DBConnection
	normalizer *normalizer.Normalizer
	logger     *zap.Logger
}

// NewRunner builds an import runner.
func NewRunner(db database.DBConnection, n *normalizer.Normalizer, logger *zap.Logger) *Runner {
	return &Runner{db: db, normalizer: n, logger: logger}
}

// Run executes one importer and advances its high-water mark on success.
func (r *Runner) Run(ctx context.Context, imp Importer) (Stats, error) {
	var stats Stats

	since, err := util.GetLastRun(r.db, imp.Name())
	if err != nil {
		return stats, err
	}

	started := time.Now().UTC()

	advisories, err := imp.Advisories(ctx, since)
	if err != nil {
		return stats, err
	}
	stats.Collected = len(advisories)

	for _, raw := range advisories {
		_, created, err := r.normalizer.Normalize(ctx, raw, imp.Name())
		if err != nil {
			r.logger.Sugar().Warnf("Importer %s: skipping advisory %v: %v", imp.Name(), raw.Aliases, err)
			stats.Skipped++
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Deduplicated++
		}
	}

	if err := util.SaveLastRun(r.db, imp.Name(), started); err != nil {
		return stats, err
	}

	r.logger.Sugar().Infof("Importer %s: %d collected, %d created, %d deduplicated, %d skipped",
		imp.Name(), stats.Collected, stats.Created, stats.Deduplicated, stats.Skipped)

	return stats, nil
}
