// Package graphstore answers the derived, read-only queries over the
// canonical package-vulnerability edges. It has no write path: edges are
// written only through the merge engine, never inserted directly.
package graphstore

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/model"
)

// Store serves fix-filtered traversals over package2vulnerability. All
// queries are backed by the [_to,fix] and [_from,fix] persistent indexes.
type Store struct {
	DB database.DBConnection
}

// New creates a graph store over the given connection.
func New(db database.DBConnection) *Store {
	return &Store{DB: db}
}

// VulnerableTo returns all packages with a fix=false edge to the
// vulnerability.
func (s *Store) VulnerableTo(ctx context.Context, vulnKey string) ([]model.Package, error) {
	return s.packagesByFix(ctx, vulnKey, false)
}

// ResolvedTo returns all packages with a fix=true edge to the
// vulnerability: the versions that first received a patch against it.
func (s *Store) ResolvedTo(ctx context.Context, vulnKey string) ([]model.Package, error) {
	return s.packagesByFix(ctx, vulnKey, true)
}

func (s *Store) packagesByFix(ctx context.Context, vulnKey string, fix bool) ([]model.Package, error) {
	query := `
		FOR pkg, edge IN 1..1 INBOUND CONCAT("vulnerability/", @key) package2vulnerability
			FILTER edge.fix == @fix
			RETURN pkg
	`
	bindVars := map[string]interface{}{
		"key": vulnKey,
		"fix": fix,
	}

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var packages []model.Package
	for cursor.HasMore() {
		var pkg model.Package
		if _, err := cursor.ReadDocument(ctx, &pkg); err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	return packages, nil
}

// AffectedBy returns the vulnerabilities affecting the package (fix=false
// edges).
func (s *Store) AffectedBy(ctx context.Context, packageKey string) ([]model.Vulnerability, error) {
	return s.vulnerabilitiesByFix(ctx, packageKey, false)
}

// FixedAgainst returns the vulnerabilities the package is patched against
// (fix=true edges).
func (s *Store) FixedAgainst(ctx context.Context, packageKey string) ([]model.Vulnerability, error) {
	return s.vulnerabilitiesByFix(ctx, packageKey, true)
}

func (s *Store) vulnerabilitiesByFix(ctx context.Context, packageKey string, fix bool) ([]model.Vulnerability, error) {
	query := `
		FOR vuln, edge IN 1..1 OUTBOUND CONCAT("package/", @key) package2vulnerability
			FILTER edge.fix == @fix
			RETURN vuln
	`
	bindVars := map[string]interface{}{
		"key": packageKey,
		"fix": fix,
	}

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var vulns []model.Vulnerability
	for cursor.HasMore() {
		var vuln model.Vulnerability
		if _, err := cursor.ReadDocument(ctx, &vuln); err != nil {
			return nil, err
		}
		vulns = append(vulns, vuln)
	}

	return vulns, nil
}
