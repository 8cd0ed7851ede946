// Package advisories provides REST handlers for advisory ingestion.
package advisories

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/vulngraph/vulngraph-backend/internal/normalizer"
	"github.com/vulngraph/vulngraph-backend/model"
	"github.com/vulngraph/vulngraph-backend/util"
)

// PostAdvisory ingests one raw advisory document. Byte-identical
// re-submission is a 200 with the existing record; a new document is a
// 201.
func PostAdvisory(n *normalizer.Normalizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Source   string                 `json:"source"`
			Advisory normalizer.RawAdvisory `json:"advisory"`
		}

		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if util.IsEmpty(req.Source) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "source is required",
			})
		}

		stored, created, err := n.Normalize(c.Context(), req.Advisory, req.Source)
		if err != nil {
			var tooLong *model.FieldTooLongError
			if errors.As(err, &tooLong) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}

		return c.Status(status).JSON(fiber.Map{
			"content_sha": stored.ContentSha,
			"created":     created,
		})
	}
}
