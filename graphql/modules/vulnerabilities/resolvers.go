// Package vulnerabilities implements the resolvers for vulnerability data.
package vulnerabilities

import (
	"context"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/model"
)

// ResolveVulnerability looks a vulnerability up by external identifier:
// either an alias such as CVE-2020-2233 or the VULN-<uuid> form.
func ResolveVulnerability(db database.DBConnection, id string) (*model.Vulnerability, error) {
	ctx := context.Background()

	if vulnID, ok := strings.CutPrefix(id, "VULN-"); ok {
		return vulnerabilityByVulnID(ctx, db, vulnID)
	}

	query := `
		FOR a IN alias
			FILTER a.alias == @alias
			LIMIT 1
			RETURN DOCUMENT("vulnerability", a.vulnerability_key)
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"alias": id},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, nil
	}
	var vuln model.Vulnerability
	if _, err := cursor.ReadDocument(ctx, &vuln); err != nil {
		return nil, err
	}
	return &vuln, nil
}

func vulnerabilityByVulnID(ctx context.Context, db database.DBConnection, vulnID string) (*model.Vulnerability, error) {
	query := `
		FOR v IN vulnerability
			FILTER v.vuln_id == @vulnID
			LIMIT 1
			RETURN v
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"vulnID": vulnID},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, nil
	}
	var vuln model.Vulnerability
	if _, err := cursor.ReadDocument(ctx, &vuln); err != nil {
		return nil, err
	}
	return &vuln, nil
}

// ResolveAliases returns the alias strings pointing at a vulnerability.
func ResolveAliases(db database.DBConnection, vulnKey string) ([]string, error) {
	ctx := context.Background()
	query := `
		FOR a IN alias
			FILTER a.vulnerability_key == @key
			SORT a.alias
			RETURN a.alias
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"key": vulnKey},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var aliases []string
	for cursor.HasMore() {
		var alias string
		if _, err := cursor.ReadDocument(ctx, &alias); err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}
	return aliases, nil
}

// ResolveReferences returns the references recorded for a vulnerability.
func ResolveReferences(db database.DBConnection, vulnKey string) ([]model.Reference, error) {
	ctx := context.Background()
	query := `
		FOR r IN reference
			FILTER r.vulnerability_key == @key
			SORT r.url
			RETURN r
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"key": vulnKey},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var refs []model.Reference
	for cursor.HasMore() {
		var ref model.Reference
		if _, err := cursor.ReadDocument(ctx, &ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ResolvePackage looks a package up by its canonical purl.
func ResolvePackage(db database.DBConnection, purl string) (*model.Package, error) {
	ctx := context.Background()
	query := `
		FOR p IN package
			FILTER p.purl == @purl
			LIMIT 1
			RETURN p
	`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"purl": purl},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, nil
	}
	var pkg model.Package
	if _, err := cursor.ReadDocument(ctx, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}
