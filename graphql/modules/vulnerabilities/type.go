// Package vulnerabilities defines the GraphQL types for the vulnerability graph.
package vulnerabilities

import (
	"github.com/graphql-go/graphql"

	"github.com/vulngraph/vulngraph-backend/model"
)

// SeverityType represents one scoring-system entry of a reference.
var SeverityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Severity",
	Fields: graphql.Fields{
		"scoring_system": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			sev, _ := p.Source.(model.Severity)
			return sev.ScoringSystem, nil
		}},
		"value": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			sev, _ := p.Source.(model.Severity)
			return sev.Value, nil
		}},
		"score": &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			sev, _ := p.Source.(model.Severity)
			return sev.Score, nil
		}},
	},
})

// ReferenceType represents an upstream document about a vulnerability.
var ReferenceType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Reference",
	Fields: graphql.Fields{
		"url": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			ref, _ := p.Source.(model.Reference)
			return ref.URL, nil
		}},
		"reference_id": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			ref, _ := p.Source.(model.Reference)
			return ref.ReferenceID, nil
		}},
		"severities": &graphql.Field{Type: graphql.NewList(SeverityType), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			ref, _ := p.Source.(model.Reference)
			return ref.Severities, nil
		}},
	},
})

// PackageType represents a package identified by its purl.
var PackageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Package",
	Fields: graphql.Fields{
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
	},
})
