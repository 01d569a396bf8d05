package controllers

import "github.com/gofiber/fiber/v2"

func (h *Handler) GetMetadata(c *fiber.Ctx) error {
	cat, err := h.Metadata.Catalog(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, cat)
}
