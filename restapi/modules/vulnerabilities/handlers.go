// Package vulnerabilities provides REST handlers for vulnerability lookups.
package vulnerabilities

import (
	"context"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/gofiber/fiber/v2"

	"github.com/vulngraph/vulngraph-backend/database"
	"github.com/vulngraph/vulngraph-backend/internal/graphstore"
	"github.com/vulngraph/vulngraph-backend/model"
)

// GetVulnerability returns a vulnerability by external identifier,
// either an alias or the VULN-<uuid> form.
func GetVulnerability(db database.DBConnection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vuln, err := lookupVulnerability(c.Context(), db, c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if vuln == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "vulnerability not found"})
		}

		aliases, err := lookupAliases(c.Context(), db, vuln.Key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{
			"vuln_id": vuln.ExternalID(),
			"summary": vuln.Summary,
			"aliases": aliases,
		})
	}
}

// GetVulnerabilityPackages returns the packages related to a
// vulnerability. With ?fix=true only the patched packages are returned,
// with ?fix=false only the vulnerable ones, otherwise both sets.
func GetVulnerabilityPackages(db database.DBConnection, store *graphstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vuln, err := lookupVulnerability(c.Context(), db, c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if vuln == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "vulnerability not found"})
		}

		switch c.Query("fix") {
		case "true":
			resolved, err := store.ResolvedTo(c.Context(), vuln.Key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"resolved": purls(resolved)})
		case "false":
			vulnerable, err := store.VulnerableTo(c.Context(), vuln.Key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"vulnerable": purls(vulnerable)})
		default:
			vulnerable, err := store.VulnerableTo(c.Context(), vuln.Key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			resolved, err := store.ResolvedTo(c.Context(), vuln.Key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{
				"vulnerable": purls(vulnerable),
				"resolved":   purls(resolved),
			})
		}
	}
}

func purls(packages []model.Package) []string {
	out := make([]string, 0, len(packages))
	for _, pkg := range packages {
		out = append(out, pkg.Purl)
	}
	return out
}

func lookupVulnerability(ctx context.Context, db database.DBConnection, id string) (*model.Vulnerability, error) {
	var query string
	var bindVars map[string]interface{}

	if vulnID, ok := strings.CutPrefix(id, "VULN-"); ok {
		query = `
			FOR v IN vulnerability
				FILTER v.vuln_id == @id
				LIMIT 1
				RETURN v
		`
		bindVars = map[string]interface{}{"id": vulnID}
	} else {
		query = `
			FOR a IN alias
				FILTER a.alias == @id
				LIMIT 1
				RETURN DOCUMENT("vulnerability", a.vulnerability_key)
		`
		bindVars = map[string]interface{}{"id": id}
	}

	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
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

func lookupAliases(ctx context.Context, db database.DBConnection, vulnKey string) ([]string, error) {
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

	aliases := []string{}
	for cursor.HasMore() {
		var alias string
		if _, err := cursor.ReadDocument(ctx, &alias); err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}
	return aliases, nil
}
