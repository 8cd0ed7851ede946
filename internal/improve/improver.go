package improve

import (
	"context"

	"github.com/vulngraph/vulngraph-backend/model"
	"github.com/vulngraph/vulngraph-backend/util"
)

// Improver selects the advisories it knows how to interpret and yields
// inferences for each. Improvers only read advisories and emit claims;
// they never write edges themselves.
type Improver interface {
	// Name identifies the improver in edge provenance (created_by).
	Name() string
	// InterestingAdvisories returns the advisories this improver wants
	// to process in this run.
	InterestingAdvisories(ctx context.Context) ([]model.Advisory, error)
	// Inferences interprets one advisory. An error fails only that
	// advisory, never the run.
	Inferences(ctx context.Context, advisory model.Advisory) ([]Inference, error)
}

// View is one package-type rendering of an affected package. The same
// upstream project is often addressable under several purl types, e.g.
// pkg:golang/istio and pkg:github/istio/istio, and each view gets its
// own packages and edges. Ecosystem selects the version ordering;
// CatalogKey is the lookup key for the version catalog.
type View struct {
	Type       string
	Namespace  string
	Name       string
	Ecosystem  string
	CatalogKey string
}

// ViewResolver maps an affected package identity onto the views it
// should be resolved under.
type ViewResolver interface {
	Views(affected model.AffectedPackageRange) []View
}

// IdentityViews renders each affected package under its own declared
// type only. This is the fallback when no resolver is configured.
type IdentityViews struct{}

// Views implements ViewResolver.
func (IdentityViews) Views(affected model.AffectedPackageRange) []View {
	return []View{identityView(affected)}
}

func identityView(affected model.AffectedPackageRange) View {
	key := affected.Name
	if affected.Namespace != "" {
		key = affected.Namespace + "/" + affected.Name
	}
	return View{
		Type:       affected.Type,
		Namespace:  affected.Namespace,
		Name:       affected.Name,
		Ecosystem:  affected.Type,
		CatalogKey: key,
	}
}

// StaticViews maps versionless base purls onto fixed view sets, for
// sources whose projects are known under several package types. Unlisted
// packages fall back to their identity view.
type StaticViews struct {
	Packages map[string][]View
}

// Views implements ViewResolver.
func (s *StaticViews) Views(affected model.AffectedPackageRange) []View {
	base := util.BasePurlFromComponents(affected.Type, affected.Namespace, affected.Name)
	if views, ok := s.Packages[base]; ok {
		return views
	}
	return []View{identityView(affected)}
}
