// Package util provides utility functions for the backend.
//
//revive:disable-next-line:var-naming
package util

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	npm "github.com/aquasecurity/go-npm-version/pkg"
	pep440 "github.com/aquasecurity/go-pep440-version"
)

// CompareVersions compares two version strings under the release-order
// semantics of the given ecosystem, never lexical string order. npm and
// PyPI get their ecosystem-specific parsers, everything else is coerced
// through semver. String comparison is the last-resort fallback when a
// value cannot be parsed at all.
func CompareVersions(ecosystem, a, b string) int {
	switch strings.ToLower(ecosystem) {
	case "npm":
		return compareNPM(a, b)
	case "pypi":
		return comparePEP440(a, b)
	default:
		return compareSemver(a, b)
	}
}

// SortVersions returns a copy of versions in ascending release order for
// the given ecosystem.
func SortVersions(ecosystem string, versions []string) []string {
	sorted := make([]string, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareVersions(ecosystem, sorted[i], sorted[j]) < 0
	})
	return sorted
}

func compareSemver(a, b string) int {
	// Strip "go" prefix for Go stdlib versions (e.g., "go1.22.2") before
	// semver parsing since Masterminds/semver doesn't handle it
	va, errA := semver.NewVersion(strings.TrimPrefix(a, "go"))
	vb, errB := semver.NewVersion(strings.TrimPrefix(b, "go"))
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

func compareNPM(a, b string) int {
	va, errA := npm.NewVersion(a)
	vb, errB := npm.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	if va.LessThan(vb) {
		return -1
	}
	if va.GreaterThan(vb) {
		return 1
	}
	return 0
}

func comparePEP440(a, b string) int {
	va, errA := pep440.Parse(a)
	vb, errB := pep440.Parse(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	if va.LessThan(vb) {
		return -1
	}
	if va.GreaterThan(vb) {
		return 1
	}
	return 0
}
