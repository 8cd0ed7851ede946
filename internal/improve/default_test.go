package improve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulngraph/vulngraph-backend/internal/catalog"
	"github.com/vulngraph/vulngraph-backend/model"
)

// staticSource serves a fixed advisory list.
type staticSource struct {
	advisories []model.Advisory
}

func (s *staticSource) UnimprovedAdvisories(_ context.Context) ([]model.Advisory, error) {
	return s.advisories, nil
}

var istioVersions = []string{
	"1.0.0", "1.1.0", "1.1.1", "1.1.17", "1.2.1", "1.2.7", "1.3.0", "1.3.1", "1.3.2",
}

func istioAdvisory() model.Advisory {
	return model.Advisory{
		Key:     "adv-istio",
		Aliases: []string{"CVE-2019-12243"},
		Summary: "Incorrect access control in Istio",
		AffectedPackages: []model.AffectedPackageRange{{
			Type:            "golang",
			Name:            "istio",
			VulnerableRange: "1.1 to 1.1.15",
		}},
	}
}

// istioViews renders the istio project under both its Go module and its
// source repository identity.
func istioViews() ViewResolver {
	return &StaticViews{Packages: map[string][]View{
		"pkg:golang/istio": {
			{Type: "golang", Name: "istio", Ecosystem: "golang", CatalogKey: "istio/istio"},
			{Type: "github", Namespace: "istio", Name: "istio", Ecosystem: "github", CatalogKey: "istio/istio"},
		},
	}}
}

func istioCatalog() catalog.Provider {
	return &catalog.Static{Packages: map[string][]string{
		"istio/istio": istioVersions,
	}}
}

func purlsOf(packages []*model.Package) []string {
	out := make([]string, 0, len(packages))
	for _, pkg := range packages {
		out = append(out, pkg.Purl)
	}
	return out
}

func Test_DefaultImprover_IstioTwoViews(t *testing.T) {
	improver := NewDefaultImprover(&staticSource{}, istioCatalog(), istioViews(), 100, zap.NewNop())

	inferences, err := improver.Inferences(context.Background(), istioAdvisory())
	require.NoError(t, err)
	require.Len(t, inferences, 2, "one inference per view")

	golangInf := inferences[0]
	assert.Equal(t, []string{"CVE-2019-12243"}, golangInf.Aliases)
	assert.Equal(t, 100, golangInf.Confidence)
	assert.Equal(t, []string{
		"pkg:golang/istio@1.1.0",
		"pkg:golang/istio@1.1.1",
	}, purlsOf(golangInf.AffectedPackages))
	require.NotNil(t, golangInf.FixedPackage)
	assert.Equal(t, "pkg:golang/istio@1.1.17", golangInf.FixedPackage.Purl)

	githubInf := inferences[1]
	assert.Equal(t, []string{
		"pkg:github/istio/istio@1.1.0",
		"pkg:github/istio/istio@1.1.1",
	}, purlsOf(githubInf.AffectedPackages))
	require.NotNil(t, githubInf.FixedPackage)
	assert.Equal(t, "pkg:github/istio/istio@1.1.17", githubInf.FixedPackage.Purl)
}

func Test_DefaultImprover_IdentityViewFallback(t *testing.T) {
	provider := &catalog.Static{Packages: map[string][]string{
		"istio": istioVersions,
	}}
	improver := NewDefaultImprover(&staticSource{}, provider, nil, 100, zap.NewNop())

	inferences, err := improver.Inferences(context.Background(), istioAdvisory())
	require.NoError(t, err)
	require.Len(t, inferences, 1)
	assert.Equal(t, []string{
		"pkg:golang/istio@1.1.0",
		"pkg:golang/istio@1.1.1",
	}, purlsOf(inferences[0].AffectedPackages))
}

func Test_DefaultImprover_OpenRangeOmitsFixedPackage(t *testing.T) {
	provider := &catalog.Static{Packages: map[string][]string{"istio": istioVersions}}
	improver := NewDefaultImprover(&staticSource{}, provider, nil, 100, zap.NewNop())

	advisory := istioAdvisory()
	advisory.AffectedPackages[0].VulnerableRange = "1.3.0 and later"

	inferences, err := improver.Inferences(context.Background(), advisory)
	require.NoError(t, err)
	require.Len(t, inferences, 1)

	assert.Equal(t, []string{
		"pkg:golang/istio@1.3.0",
		"pkg:golang/istio@1.3.1",
		"pkg:golang/istio@1.3.2",
	}, purlsOf(inferences[0].AffectedPackages))
	assert.Nil(t, inferences[0].FixedPackage, "no known fix yet, no fix claim")
}

func Test_DefaultImprover_ExplicitPatchedOverridesInference(t *testing.T) {
	provider := &catalog.Static{Packages: map[string][]string{"istio": istioVersions}}
	improver := NewDefaultImprover(&staticSource{}, provider, nil, 100, zap.NewNop())

	advisory := istioAdvisory()
	advisory.AffectedPackages[0].VulnerableRange = "1.1.0 to 1.1.17"
	advisory.AffectedPackages[0].PatchedRange = "1.1.17"

	inferences, err := improver.Inferences(context.Background(), advisory)
	require.NoError(t, err)
	require.Len(t, inferences, 2)

	// The declared patched version is excluded from the vulnerable set.
	assert.Equal(t, []string{
		"pkg:golang/istio@1.1.0",
		"pkg:golang/istio@1.1.1",
	}, purlsOf(inferences[0].AffectedPackages))
	assert.Nil(t, inferences[0].FixedPackage)

	// And claimed as the fix.
	require.NotNil(t, inferences[1].FixedPackage)
	assert.Equal(t, "pkg:golang/istio@1.1.17", inferences[1].FixedPackage.Purl)
	assert.Empty(t, inferences[1].AffectedPackages)
}

func Test_DefaultImprover_MalformedRangeSkipsEntry(t *testing.T) {
	provider := &catalog.Static{Packages: map[string][]string{"istio": istioVersions, "envoy": {"1.0.0", "1.1.0"}}}
	improver := NewDefaultImprover(&staticSource{}, provider, nil, 100, zap.NewNop())

	advisory := istioAdvisory()
	advisory.AffectedPackages = []model.AffectedPackageRange{
		{Type: "golang", Name: "istio", VulnerableRange: "not a real range"},
		{Type: "golang", Name: "envoy", VulnerableRange: "1.0.0"},
	}

	inferences, err := improver.Inferences(context.Background(), advisory)
	require.NoError(t, err, "a malformed entry is skipped, not fatal")
	require.Len(t, inferences, 1)
	assert.Equal(t, []string{"pkg:golang/envoy@1.0.0"}, purlsOf(inferences[0].AffectedPackages))
}

func Test_DefaultImprover_UnavailableCatalogSkipsView(t *testing.T) {
	provider := &catalog.Static{Packages: map[string][]string{}}
	improver := NewDefaultImprover(&staticSource{}, provider, nil, 100, zap.NewNop())

	inferences, err := improver.Inferences(context.Background(), istioAdvisory())
	require.NoError(t, err, "resolution is skipped, never fabricated")
	assert.Empty(t, inferences)
}

func Test_Inference_Validate(t *testing.T) {
	vulnerable, err := model.NewPackage("golang", "", "istio", "1.1.0", nil, "")
	require.NoError(t, err)
	versionless, err := model.NewPackage("golang", "", "istio", "", nil, "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		inf     Inference
		wantErr bool
	}{
		{name: "valid", inf: Inference{Aliases: []string{"CVE-1"}, Confidence: 100, AffectedPackages: []*model.Package{vulnerable}}},
		{name: "empty", inf: Inference{Confidence: 50}, wantErr: true},
		{name: "confidence over ceiling", inf: Inference{Aliases: []string{"CVE-1"}, Confidence: 101}, wantErr: true},
		{name: "negative confidence", inf: Inference{Aliases: []string{"CVE-1"}, Confidence: -1}, wantErr: true},
		{name: "version-less affected package", inf: Inference{Confidence: 50, AffectedPackages: []*model.Package{versionless}}, wantErr: true},
		{name: "version-less fixed package", inf: Inference{Confidence: 50, FixedPackage: versionless}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inf.Validate(100)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
