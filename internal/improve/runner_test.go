package improve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulngraph/vulngraph-backend/internal/merge"
	"github.com/vulngraph/vulngraph-backend/model"
)

// memoryGraph implements GraphWriter in memory.
type memoryGraph struct {
	mu       sync.Mutex
	vulns    map[string]*model.Vulnerability // by first alias
	packages map[string]*model.Package      // by purl
	refs     map[string]model.Reference
	improved map[string]bool

	conflictAliases map[string]bool
	nextKey         int
}

func newMemoryGraph() *memoryGraph {
	return &memoryGraph{
		vulns:           make(map[string]*model.Vulnerability),
		packages:        make(map[string]*model.Package),
		refs:            make(map[string]model.Reference),
		improved:        make(map[string]bool),
		conflictAliases: make(map[string]bool),
	}
}

func (g *memoryGraph) EnsureVulnerability(_ context.Context, aliases []string, summary string) (*model.Vulnerability, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, alias := range aliases {
		if g.conflictAliases[alias] {
			return nil, &AliasConflictError{Aliases: aliases}
		}
	}

	lookup := summary
	if len(aliases) > 0 {
		lookup = aliases[0]
	}
	if vuln, ok := g.vulns[lookup]; ok {
		return vuln, nil
	}

	g.nextKey++
	vuln := model.NewVulnerability(summary)
	vuln.Key = fmt.Sprintf("vuln-%d", g.nextKey)
	g.vulns[lookup] = vuln
	return vuln, nil
}

func (g *memoryGraph) EnsurePackage(_ context.Context, pkg *model.Package) (*model.Package, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if stored, ok := g.packages[pkg.Purl]; ok {
		return stored, nil
	}
	g.nextKey++
	stored := *pkg
	stored.Key = fmt.Sprintf("pkg-%d", g.nextKey)
	g.packages[pkg.Purl] = &stored
	return &stored, nil
}

func (g *memoryGraph) EnsureReference(_ context.Context, vulnKey string, ref model.Reference) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs[vulnKey+"|"+ref.URL+"|"+ref.ReferenceID] = ref
	return nil
}

func (g *memoryGraph) StampImproved(_ context.Context, advisoryKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.improved[advisoryKey] = true
	return nil
}

// memoryUpserter mirrors the conditional edge upsert.
type memoryUpserter struct {
	mu    sync.Mutex
	edges map[[2]string]merge.Claim
}

func newMemoryUpserter() *memoryUpserter {
	return &memoryUpserter{edges: make(map[[2]string]merge.Claim)}
}

func (s *memoryUpserter) UpsertEdge(_ context.Context, claim merge.Claim) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{claim.PackageID, claim.VulnerabilityID}
	if incumbent, ok := s.edges[key]; ok && incumbent.Confidence >= claim.Confidence {
		return false, nil
	}
	s.edges[key] = claim
	return true, nil
}

func (s *memoryUpserter) edgesByFix(fix bool) []merge.Claim {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []merge.Claim
	for _, claim := range s.edges {
		if claim.Fix == fix {
			out = append(out, claim)
		}
	}
	return out
}

func newTestRunner(source AdvisorySource, graph GraphWriter, upserter merge.Upserter, views ViewResolver) *Runner {
	logger := zap.NewNop()
	engine := merge.NewEngine(upserter, 100, logger)
	improver := NewDefaultImprover(source, istioCatalog(), views, 100, logger)
	return NewRunner([]Improver{improver}, engine, graph, 4, logger)
}

func Test_Runner_IstioEndToEnd(t *testing.T) {
	source := &staticSource{advisories: []model.Advisory{istioAdvisory()}}
	graph := newMemoryGraph()
	upserter := newMemoryUpserter()
	runner := newTestRunner(source, graph, upserter, istioViews())

	require.NoError(t, runner.Run(context.Background()))

	// Two views and two vulnerable releases each: four package objects.
	vulnerableEdges := upserter.edgesByFix(false)
	assert.Len(t, vulnerableEdges, 4)

	// One patched release per view.
	fixEdges := upserter.edgesByFix(true)
	assert.Len(t, fixEdges, 2)

	for _, claim := range append(vulnerableEdges, fixEdges...) {
		assert.Equal(t, 100, claim.Confidence)
		assert.Equal(t, "default_improver", claim.CreatedBy)
	}

	// All six packages exist under both purl types.
	for _, purl := range []string{
		"pkg:golang/istio@1.1.0", "pkg:golang/istio@1.1.1", "pkg:golang/istio@1.1.17",
		"pkg:github/istio/istio@1.1.0", "pkg:github/istio/istio@1.1.1", "pkg:github/istio/istio@1.1.17",
	} {
		assert.Contains(t, graph.packages, purl)
	}

	// One vulnerability converged on the alias, advisory stamped.
	assert.Len(t, graph.vulns, 1)
	assert.True(t, graph.improved["adv-istio"])
}

func Test_Runner_Idempotent(t *testing.T) {
	source := &staticSource{advisories: []model.Advisory{istioAdvisory()}}
	graph := newMemoryGraph()
	upserter := newMemoryUpserter()
	runner := newTestRunner(source, graph, upserter, istioViews())
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx))
	require.NoError(t, runner.Run(ctx))

	assert.Len(t, upserter.edgesByFix(false), 4)
	assert.Len(t, upserter.edgesByFix(true), 2)
	assert.Len(t, graph.vulns, 1)
}

func Test_Runner_AliasConflictSkipsInference(t *testing.T) {
	source := &staticSource{advisories: []model.Advisory{istioAdvisory()}}
	graph := newMemoryGraph()
	graph.conflictAliases["CVE-2019-12243"] = true
	upserter := newMemoryUpserter()
	runner := newTestRunner(source, graph, upserter, istioViews())

	require.NoError(t, runner.Run(context.Background()), "a conflicted inference is skipped, not fatal")
	assert.Empty(t, upserter.edgesByFix(false))
	assert.Empty(t, upserter.edgesByFix(true))
	assert.True(t, graph.improved["adv-istio"], "the advisory is still marked processed")
}

// failingSource fails listing.
type failingSource struct{}

func (failingSource) UnimprovedAdvisories(_ context.Context) ([]model.Advisory, error) {
	return nil, errors.New("database down")
}

func Test_Runner_ListingFailureAborts(t *testing.T) {
	logger := zap.NewNop()
	engine := merge.NewEngine(newMemoryUpserter(), 100, logger)
	improver := NewDefaultImprover(failingSource{}, istioCatalog(), nil, 100, logger)
	runner := NewRunner([]Improver{improver}, engine, newMemoryGraph(), 4, logger)

	assert.Error(t, runner.Run(context.Background()))
}

// faultyGraph fails every write for one vulnerability alias.
type faultyGraph struct {
	*memoryGraph
	failAlias string
}

func (g *faultyGraph) EnsureVulnerability(ctx context.Context, aliases []string, summary string) (*model.Vulnerability, error) {
	for _, alias := range aliases {
		if alias == g.failAlias {
			return nil, errors.New("storage failure")
		}
	}
	return g.memoryGraph.EnsureVulnerability(ctx, aliases, summary)
}

func Test_Runner_FailingAdvisoryIsIsolated(t *testing.T) {
	bad := istioAdvisory()
	bad.Key = "adv-bad"
	bad.Aliases = []string{"CVE-2019-0000"}

	good := istioAdvisory()
	good.Key = "adv-good"

	source := &staticSource{advisories: []model.Advisory{bad, good}}
	graph := &faultyGraph{memoryGraph: newMemoryGraph(), failAlias: "CVE-2019-0000"}
	upserter := newMemoryUpserter()
	runner := newTestRunner(source, graph, upserter, istioViews())

	require.NoError(t, runner.Run(context.Background()), "one failing advisory never aborts the run")
	assert.True(t, graph.improved["adv-good"])
	assert.False(t, graph.improved["adv-bad"], "failed advisories stay unstamped for the next run")
}
