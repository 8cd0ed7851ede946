// Package improve derives canonical package-vulnerability edges from
// stored advisory evidence. Improvers yield Inferences; the Runner feeds
// them through the merge engine.
package improve

import (
	"fmt"

	"github.com/vulngraph/vulngraph-backend/model"
)

// Inference expresses the contract between improvers and the runner: one
// believed vulnerability with the packages it affects and, when known,
// the package version that fixes it.
type Inference struct {
	Aliases          []string
	Summary          string
	Confidence       int
	AffectedPackages []*model.Package
	FixedPackage     *model.Package
	References       []model.Reference
}

// Validate rejects empty and version-less inferences. ceiling is the
// configured confidence upper bound.
func (inf *Inference) Validate(ceiling int) error {
	if inf.Confidence < 0 || inf.Confidence > ceiling {
		return fmt.Errorf("confidence %d out of range [0, %d]", inf.Confidence, ceiling)
	}

	if len(inf.Aliases) == 0 && inf.Summary == "" && len(inf.AffectedPackages) == 0 &&
		inf.FixedPackage == nil && len(inf.References) == 0 {
		return fmt.Errorf("empty inference")
	}

	packages := inf.AffectedPackages
	if inf.FixedPackage != nil {
		packages = append(packages[:len(packages):len(packages)], inf.FixedPackage)
	}
	for _, pkg := range packages {
		if pkg.Version == "" {
			return fmt.Errorf("version-less package %s is not supported in an inference", pkg.Purl)
		}
	}

	return nil
}
