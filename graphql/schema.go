// Package graphql assembles the root schema over the vulnerability graph.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/graphql/modules/vulnerabilities"
	"github.com/vulngraph/vulngraph-backend/internal/graphstore"
)

var db database.DBConnection

// InitDB stores the database connection for the resolvers.
func InitDB(conn database.DBConnection) {
	db = conn
}

// CreateSchema builds the root query schema.
func CreateSchema() (graphql.Schema, error) {
	store := graphstore.New(db)

	rootFields := graphql.Fields{}
	for name, field := range vulnerabilities.GetQueryFields(db, store) {
		rootFields[name] = field
	}

	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: rootFields,
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: rootQuery,
	})
}
