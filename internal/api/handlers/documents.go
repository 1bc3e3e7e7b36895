package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/services"
)

const maxPageSize = 100

// ListReferenceDocuments returns a page of reference documents
func ListReferenceDocuments(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		offset := c.QueryInt("offset", 0)
		if limit <= 0 || limit > maxPageSize {
			limit = maxPageSize
		}
		if offset < 0 {
			offset = 0
		}

		docs, err := svc.Documents.List(c.Context(), limit, offset)
		if err != nil {
			return err
		}
		if docs == nil {
			docs = []*models.ReferenceDocument{}
		}
		return c.JSON(fiber.Map{
			"documents": docs,
			"limit":     limit,
			"offset":    offset,
		})
	}
}

// GetReferenceDocument returns one reference document
func GetReferenceDocument(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		doc, err := svc.Documents.Get(c.Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(doc)
	}
}

// DeleteReferenceDocument removes a document and its indexed chunks
func DeleteReferenceDocument(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.Documents.Delete(c.Context(), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
