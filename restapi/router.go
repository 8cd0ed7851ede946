// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/internal/graphstore"
	"github.com/vulngraph/vulngraph-backend/internal/normalizer"
	advisoriesapi "github.com/vulngraph/vulngraph-backend/restapi/modules/advisories"
	"github.com/vulngraph/vulngraph-backend/restapi/modules/packages"
	"github.com/vulngraph/vulngraph-backend/restapi/modules/vulnerabilities"
)

// SetupRoutes configures all REST API routes and the GraphQL endpoint.
func SetupRoutes(app *fiber.App, db database.DBConnection, schema graphql.Schema, n *normalizer.Normalizer) {
	store := graphstore.New(db)

	// API Group /api/v1
	api := app.Group("/api/v1")

	// GraphQL Route - Mounted within the api group to inherit path prefixes
	api.Post("/graphql", GraphQLHandler(schema))

	// Advisory ingestion
	api.Post("/advisories", advisoriesapi.PostAdvisory(n))

	// Vulnerability lookups
	api.Get("/vulnerabilities/:id", vulnerabilities.GetVulnerability(db))
	api.Get("/vulnerabilities/:id/packages", vulnerabilities.GetVulnerabilityPackages(db, store))

	// Package lookups
	api.Get("/packages/vulnerabilities", packages.GetPackageVulnerabilities(db, store))

	log.Println("API routes initialized successfully")
}
