// Package merge reconciles potentially conflicting claims about the same
// (package, vulnerability) relationship into one canonical edge. The
// stored edge only ever improves: a claim replaces the incumbent iff its
// confidence is strictly higher, and ties keep the incumbent.
package merge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vulngraph/vulngraph-backend/model"
)

// Claim is one assertion from an improver that a package is vulnerable to
// (fix=false) or patched against (fix=true) a vulnerability.
type Claim struct {
	PackageID       string // package/<key>
	VulnerabilityID string // vulnerability/<key>
	Fix             bool
	Confidence      int
	CreatedBy       string
}

// Upserter performs the atomic conditional upsert for a claim: the
// compare-then-write must be serialized per (package, vulnerability) key
// at the storage layer, never as separate read-then-write calls. applied
// reports whether the claim became the canonical edge.
type Upserter interface {
	UpsertEdge(ctx context.Context, claim Claim) (applied bool, err error)
}

// Engine validates claims and applies them through an Upserter, keeping
// exactly one edge per (package, vulnerability) pair.
type Engine struct {
	store   Upserter
	ceiling int
	logger  *zap.Logger
}

// NewEngine builds a merge engine. ceiling is the configured confidence
// upper bound (MAX_CONFIDENCE).
func NewEngine(store Upserter, ceiling int, logger *zap.Logger) *Engine {
	return &Engine{store: store, ceiling: ceiling, logger: logger}
}

// Ceiling returns the configured confidence upper bound.
func (e *Engine) Ceiling() int {
	return e.ceiling
}

// Apply applies one claim. Creating claims always succeed; on an existing
// pair the claim wins iff its confidence is strictly higher than the
// stored one. A losing claim is a normal outcome, not an error. Each
// claim is all-or-nothing: a failure leaves the store untouched.
func (e *Engine) Apply(ctx context.Context, claim Claim) (bool, error) {
	if claim.PackageID == "" || claim.VulnerabilityID == "" {
		return false, fmt.Errorf("claim requires both package and vulnerability ids")
	}
	if claim.Confidence < 0 || claim.Confidence > e.ceiling {
		return false, fmt.Errorf("confidence %d out of range [0, %d]", claim.Confidence, e.ceiling)
	}
	if len(claim.CreatedBy) > model.MaxCreatedByLen {
		return false, &model.FieldTooLongError{Field: "created_by", Len: len(claim.CreatedBy), Max: model.MaxCreatedByLen}
	}

	applied, err := e.store.UpsertEdge(ctx, claim)
	if err != nil {
		return false, err
	}

	if applied {
		e.logger.Sugar().Infof("Edge %s R %s set: fix=%v confidence=%d by %s",
			claim.PackageID, claim.VulnerabilityID, claim.Fix, claim.Confidence, claim.CreatedBy)
	} else {
		e.logger.Sugar().Debugf("Edge %s R %s kept incumbent over confidence=%d claim by %s",
			claim.PackageID, claim.VulnerabilityID, claim.Confidence, claim.CreatedBy)
	}

	return applied, nil
}
