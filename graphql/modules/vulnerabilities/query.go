// Package vulnerabilities defines the GraphQL queries for the vulnerability graph.
package vulnerabilities

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/internal/graphstore"
	"github.com/vulngraph/vulngraph-backend/model"
)

// GetVulnerabilityType returns the Vulnerability object with its
// graph-backed fields.
func GetVulnerabilityType(db database.DBConnection, store *graphstore.Store) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Vulnerability",
		Fields: graphql.Fields{
			"vuln_id": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				vuln, _ := p.Source.(model.Vulnerability)
				return vuln.ExternalID(), nil
			}},
			"summary": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				vuln, _ := p.Source.(model.Vulnerability)
				return vuln.Summary, nil
			}},
			"aliases": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					vuln, ok := p.Source.(model.Vulnerability)
					if !ok {
						return []string{}, nil
					}
					return ResolveAliases(db, vuln.Key)
				},
			},
			"references": &graphql.Field{
				Type: graphql.NewList(ReferenceType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					vuln, ok := p.Source.(model.Vulnerability)
					if !ok {
						return []model.Reference{}, nil
					}
					return ResolveReferences(db, vuln.Key)
				},
			},
			"vulnerable_packages": &graphql.Field{
				Type: graphql.NewList(PackageType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					vuln, ok := p.Source.(model.Vulnerability)
					if !ok {
						return []model.Package{}, nil
					}
					return store.VulnerableTo(context.Background(), vuln.Key)
				},
			},
			"resolved_packages": &graphql.Field{
				Type: graphql.NewList(PackageType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					vuln, ok := p.Source.(model.Vulnerability)
					if !ok {
						return []model.Package{}, nil
					}
					return store.ResolvedTo(context.Background(), vuln.Key)
				},
			},
		},
	})
}

// GetQueryFields returns the vulnerability-graph queries to be mounted
// in the root schema.
func GetQueryFields(db database.DBConnection, store *graphstore.Store) graphql.Fields {
	vulnerabilityType := GetVulnerabilityType(db, store)

	return graphql.Fields{
		"vulnerability": &graphql.Field{
			Type: vulnerabilityType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id := p.Args["id"].(string)
				vuln, err := ResolveVulnerability(db, id)
				if err != nil || vuln == nil {
					return nil, err
				}
				return *vuln, nil
			},
		},
		"package": &graphql.Field{
			Type: getPackageQueryType(db, store, vulnerabilityType),
			Args: graphql.FieldConfigArgument{
				"purl": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				purl := p.Args["purl"].(string)
				pkg, err := ResolvePackage(db, purl)
				if err != nil || pkg == nil {
					return nil, err
				}
				return *pkg, nil
			},
		},
	}
}

// getPackageQueryType extends PackageType with the per-package
// vulnerability lookups.
func getPackageQueryType(db database.DBConnection, store *graphstore.Store, vulnerabilityType *graphql.Object) *graphql.Object {
	fields := graphql.Fields{
		"purl": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pkg, _ := p.Source.(model.Package)
			return pkg.Purl, nil
		}},
		"type": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pkg, _ := p.Source.(model.Package)
			return pkg.Type, nil
		}},
		"namespace": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pkg, _ := p.Source.(model.Package)
			return pkg.Namespace, nil
		}},
		"name": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pkg, _ := p.Source.(model.Package)
			return pkg.Name, nil
		}},
		"version": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pkg, _ := p.Source.(model.Package)
			return pkg.Version, nil
		}},
		"affected_by": &graphql.Field{
			Type: graphql.NewList(vulnerabilityType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				pkg, ok := p.Source.(model.Package)
				if !ok {
					return []model.Vulnerability{}, nil
				}
				return store.AffectedBy(context.Background(), pkg.Key)
			},
		},
		"fixed_against": &graphql.Field{
			Type: graphql.NewList(vulnerabilityType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				pkg, ok := p.Source.(model.Package)
				if !ok {
					return []model.Vulnerability{}, nil
				}
				return store.FixedAgainst(context.Background(), pkg.Key)
			},
		},
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:   "PackageDetail",
		Fields: fields,
	})
}
