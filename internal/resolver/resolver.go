// Package resolver turns textual release-range descriptors into concrete
// vulnerable and patched versions against a package's version catalog.
package resolver

import (
	"fmt"
	"strings"

	"github.com/vulngraph/vulngraph-backend/util"
)

// Range is one contiguous release range with inclusive bounds. An empty
// Start means "all versions up to End"; an empty End means "End is still
// open": every catalog version from Start onward is vulnerable and no
// patched version exists yet.
type Range struct {
	Start string
	End   string
}

// MalformedRangeError reports a range descriptor that cannot be parsed.
// The affected-package entry carrying it is skipped; the rest of the
// advisory is still processed.
type MalformedRangeError struct {
	Descriptor string
}

func (e *MalformedRangeError) Error() string {
	return fmt.Sprintf("malformed range descriptor: %q", e.Descriptor)
}

// Parse parses an upstream range descriptor into one or more ranges.
// Supported conventions, as published by upstream security bulletins:
//
//	"1.1.0"                    single release
//	"1.1 to 1.1.15"            bounded range
//	"1.1.0 and later"          open-ended range
//	"up to 1.1.15"             open-started range
//	"A, B, C"                  union of the above
func Parse(descriptor string) ([]Range, error) {
	var ranges []Range

	for _, part := range strings.Split(descriptor, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, &MalformedRangeError{Descriptor: descriptor}
		}

		switch {
		case strings.HasSuffix(part, " and later"):
			start := strings.TrimSpace(strings.TrimSuffix(part, " and later"))
			if start == "" {
				return nil, &MalformedRangeError{Descriptor: descriptor}
			}
			ranges = append(ranges, Range{Start: start})

		case strings.HasPrefix(part, "up to "):
			end := strings.TrimSpace(strings.TrimPrefix(part, "up to "))
			if end == "" {
				return nil, &MalformedRangeError{Descriptor: descriptor}
			}
			ranges = append(ranges, Range{End: end})

		case strings.Contains(part, " to "):
			bounds := strings.SplitN(part, " to ", 2)
			start := strings.TrimSpace(bounds[0])
			end := strings.TrimSpace(bounds[1])
			if start == "" || end == "" || strings.ContainsRune(start, ' ') || strings.ContainsRune(end, ' ') {
				return nil, &MalformedRangeError{Descriptor: descriptor}
			}
			ranges = append(ranges, Range{Start: start, End: end})

		default:
			if strings.ContainsRune(part, ' ') {
				return nil, &MalformedRangeError{Descriptor: descriptor}
			}
			ranges = append(ranges, Range{Start: part, End: part})
		}
	}

	return ranges, nil
}

// Resolve computes the concrete vulnerable versions and the patched
// version for one range against the known version catalog of a package.
//
// vulnerable holds every known version v with Start <= v <= End in
// release order; patched is the smallest known version strictly greater
// than End, or "" when no fix is known yet. Both bounds are inclusive;
// upstream bulletins do not state whether the upper bound is exclusive
// when it names an unreleased version, so the wider reading is used.
// Comparison is always release-version order for the ecosystem, never
// string order. Deterministic: identical inputs give identical outputs.
func Resolve(ecosystem string, rng Range, known []string) (vulnerable []string, patched string) {
	sorted := util.SortVersions(ecosystem, known)

	for _, v := range sorted {
		if rng.Start != "" && util.CompareVersions(ecosystem, v, rng.Start) < 0 {
			continue
		}
		if rng.End != "" && util.CompareVersions(ecosystem, v, rng.End) > 0 {
			// First version past the range is the patch, when the range
			// has an upper bound at all.
			if patched == "" {
				patched = v
			}
			continue
		}
		vulnerable = append(vulnerable, v)
	}

	return vulnerable, patched
}

// Resolution pairs the vulnerable versions of one range with the patched
// version that closes it. Patched is "" when the range is still open.
type Resolution struct {
	Vulnerable []string
	Patched    string
}

// ResolveDescriptor resolves every range parsed from a descriptor
// independently and concatenates the results, preserving which patched
// version belongs to which range.
func ResolveDescriptor(ecosystem, descriptor string, known []string) ([]Resolution, error) {
	ranges, err := Parse(descriptor)
	if err != nil {
		return nil, err
	}

	resolutions := make([]Resolution, 0, len(ranges))
	for _, rng := range ranges {
		vuln, fix := Resolve(ecosystem, rng, known)
		resolutions = append(resolutions, Resolution{Vulnerable: vuln, Patched: fix})
	}

	return resolutions, nil
}
