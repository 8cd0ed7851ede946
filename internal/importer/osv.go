package importer

import (
	"strings"

	"github.com/google/osv-scanner/pkg/models"

	"github.com/vulngraph/vulngraph-backend/internal/normalizer"
	"github.com/vulngraph/vulngraph-backend/model"
	"github.com/vulngraph/vulngraph-backend/util"
)

// FromOSV maps one OSV document onto the raw advisory shape. Git ranges
// are skipped; SEMVER and ECOSYSTEM ranges become textual descriptors
// the range resolver understands.
func FromOSV(osv models.Vulnerability) normalizer.RawAdvisory {
	raw := normalizer.RawAdvisory{
		Summary:    osvSummary(osv),
		References: osvReferences(osv),
	}

	if osv.ID != "" {
		raw.Aliases = append(raw.Aliases, osv.ID)
	}
	for _, alias := range osv.Aliases {
		if !util.Contains(raw.Aliases, alias) {
			raw.Aliases = append(raw.Aliases, alias)
		}
	}

	if !osv.Published.IsZero() {
		published := osv.Published.UTC()
		raw.DatePublished = &published
	}

	for _, affected := range osv.Affected {
		if pkg, ok := osvAffectedPackage(affected); ok {
			raw.AffectedPackages = append(raw.AffectedPackages, pkg)
		}
	}

	return raw
}

func osvSummary(osv models.Vulnerability) string {
	if osv.Summary != "" {
		return osv.Summary
	}
	// Some OSV ecosystems only fill details; keep the first line.
	details := strings.TrimSpace(osv.Details)
	if i := strings.IndexByte(details, '\n'); i >= 0 {
		details = strings.TrimSpace(details[:i])
	}
	return details
}

// osvReferences keeps upstream links and pins the vulnerability-level
// severities onto the osv.dev reference, so they survive the advisory's
// reference-owned severity shape.
func osvReferences(osv models.Vulnerability) []model.Reference {
	refs := []model.Reference{{
		URL:         "https://osv.dev/vulnerability/" + osv.ID,
		ReferenceID: osv.ID,
		Severities:  osvSeverities(osv.Severity),
	}}
	for _, ref := range osv.References {
		refs = append(refs, model.Reference{URL: ref.URL})
	}
	return refs
}

func osvSeverities(severities []models.Severity) []model.Severity {
	var out []model.Severity
	for _, sev := range severities {
		system := scoringSystemFor(sev)
		if system == "" {
			continue
		}
		out = append(out, model.Severity{
			ScoringSystem: system,
			Value:         sev.Score,
		})
	}
	return out
}

func scoringSystemFor(sev models.Severity) string {
	switch sev.Type {
	case models.SeverityCVSSV2:
		return "cvssv2"
	case models.SeverityCVSSV3:
		if strings.HasPrefix(sev.Score, "CVSS:3.1") {
			return "cvssv3.1"
		}
		return "cvssv3"
	case models.SeverityCVSSV4:
		return "cvssv4"
	}
	return ""
}

func osvAffectedPackage(affected models.Affected) (model.AffectedPackageRange, bool) {
	ptype, namespace, name := osvPackageIdentity(affected.Package)
	if name == "" {
		return model.AffectedPackageRange{}, false
	}

	pkg := model.AffectedPackageRange{
		Type:      ptype,
		Namespace: namespace,
		Name:      name,
	}

	var vulnerable, patched []string

	vulnerable = append(vulnerable, affected.Versions...)

	for _, rng := range affected.Ranges {
		if rng.Type != models.RangeSemVer && rng.Type != models.RangeEcosystem {
			continue
		}
		v, p := descriptorsFromEvents(rng.Events)
		vulnerable = append(vulnerable, v...)
		patched = append(patched, p...)
	}

	if len(vulnerable) == 0 && len(patched) == 0 {
		return model.AffectedPackageRange{}, false
	}

	pkg.VulnerableRange = strings.Join(vulnerable, ", ")
	pkg.PatchedRange = strings.Join(patched, ", ")
	return pkg, true
}

// descriptorsFromEvents folds an OSV event list into textual range
// descriptors. OSV's fixed bound is exclusive: naming the fixed version
// in both the vulnerable descriptor and the patched descriptor yields
// the half-open range once the patched versions are subtracted, and the
// fixed version itself gets the fix claim.
func descriptorsFromEvents(events []models.Event) (vulnerable, patched []string) {
	introduced := ""
	flush := func(upper string, fixed bool) {
		switch {
		case introduced == "" || introduced == "0":
			vulnerable = append(vulnerable, "up to "+upper)
		default:
			vulnerable = append(vulnerable, introduced+" to "+upper)
		}
		if fixed {
			patched = append(patched, upper)
		}
		introduced = ""
	}

	for _, event := range events {
		switch {
		case event.Introduced != "":
			introduced = event.Introduced
		case event.Fixed != "":
			flush(event.Fixed, true)
		case event.LastAffected != "":
			flush(event.LastAffected, false)
		}
	}

	// A trailing introduced with no upper bound stays open: everything
	// from it onward is vulnerable and no fix is known.
	if introduced != "" && introduced != "0" {
		vulnerable = append(vulnerable, introduced+" and later")
	}

	return vulnerable, patched
}

func osvPackageIdentity(pkg models.Package) (ptype, namespace, name string) {
	if pkg.Purl != "" {
		if parsed, err := util.ParsePURL(pkg.Purl); err == nil {
			return parsed.Type, parsed.Namespace, parsed.Name
		}
	}

	ptype = util.EcosystemToPurlType(string(pkg.Ecosystem))
	name = pkg.Name

	// Path-style names (Go modules, GitHub repos) carry their namespace
	// in the name.
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		namespace = name[:i]
		name = name[i+1:]
	}

	return ptype, namespace, name
}
