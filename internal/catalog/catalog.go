// Package catalog provides version catalog lookups: the ordered set of
// known released versions for a package, fetched from an upstream
// registry and cached for the duration of one run.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Provider returns the known released versions for a package key. The
// key is the ecosystem-scoped package path, e.g. "istio/istio" for a
// GitHub-backed catalog. Order of the returned slice is not guaranteed;
// callers sort with release-version semantics before use.
type Provider interface {
	Versions(ctx context.Context, pkg string) ([]string, error)
}

// UnavailableError reports a failed or timed-out catalog lookup. The
// resolution for that package is skipped, never fabricated.
type UnavailableError struct {
	Package string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("version catalog unavailable for %s: %v", e.Package, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Static is a map-backed Provider for fixtures and tests.
type Static struct {
	Packages map[string][]string
}

// Versions implements Provider.
func (s *Static) Versions(_ context.Context, pkg string) ([]string, error) {
	versions, ok := s.Packages[pkg]
	if !ok {
		return nil, &UnavailableError{Package: pkg, Err: fmt.Errorf("unknown package")}
	}
	return versions, nil
}

// Cached memoizes a Provider per package key for the duration of one run,
// so multiple ranges referencing the same package share one upstream
// round-trip. Concurrent workers asking for the same key are collapsed
// into a single in-flight fetch.
type Cached struct {
	upstream Provider

	group singleflight.Group
	mu    sync.RWMutex
	known map[string][]string
}

// NewCached wraps a Provider with per-run memoization.
func NewCached(upstream Provider) *Cached {
	return &Cached{
		upstream: upstream,
		known:    make(map[string][]string),
	}
}

// Versions implements Provider. Failed lookups are not cached so a later
// retry within the run can still succeed.
func (c *Cached) Versions(ctx context.Context, pkg string) ([]string, error) {
	c.mu.RLock()
	if versions, ok := c.known[pkg]; ok {
		c.mu.RUnlock()
		return versions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do(pkg, func() (interface{}, error) {
		versions, err := c.upstream.Versions(ctx, pkg)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.known[pkg] = versions
		c.mu.Unlock()
		return versions, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]string), nil
}
