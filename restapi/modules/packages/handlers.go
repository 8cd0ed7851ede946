// Package packages provides REST handlers for package lookups.
package packages

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/gofiber/fiber/v2"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/internal/graphstore"
	"github.com/vulngraph/vulngraph-backend/model"
	"github.com/vulngraph/vulngraph-backend/util"
)

// GetPackageVulnerabilities returns the vulnerabilities related to a
// package identified by ?purl=. With ?fix=true only the ones it is
// patched against, with ?fix=false only the ones affecting it, otherwise
// both sets.
func GetPackageVulnerabilities(db database.DBConnection, store *graphstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		purl := c.Query("purl")
		if util.IsEmpty(purl) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "purl query parameter is required"})
		}

		pkg, err := lookupPackage(c.Context(), db, purl)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if pkg == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "package not found"})
		}

		switch c.Query("fix") {
		case "true":
			fixed, err := store.FixedAgainst(c.Context(), pkg.Key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"fixed_against": vulnIDs(fixed)})
		case "false":
			affected, err := store.AffectedBy(c.Context(), pkg.Key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"affected_by": vulnIDs(affected)})
		default:
			affected, err := store.AffectedBy(c.Context(), pkg.Key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			fixed, err := store.FixedAgainst(c.Context(), pkg.Key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{
				"affected_by":   vulnIDs(affected),
				"fixed_against": vulnIDs(fixed),
			})
		}
	}
}

func vulnIDs(vulns []model.Vulnerability) []string {
	out := make([]string, 0, len(vulns))
	for _, vuln := range vulns {
		out = append(out, vuln.ExternalID())
	}
	return out
}

func lookupPackage(ctx context.Context, db database.DBConnection, purl string) (*model.Package, error) {
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
