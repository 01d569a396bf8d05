package controllers

import (
	"errors"
	"strings"
	"time"

	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/middlewares"
	"cargo-bidding-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ListShipments is the platform board. Without ?status only active listings
// are shown.
func (h *Handler) ListShipments(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext()).Model(&models.Shipment{})

	status := models.ShipmentStatus(strings.ToLower(c.Query("status", string(models.ShipmentActive))))
	switch status {
	case models.ShipmentActive, models.ShipmentCompleted, models.ShipmentCancelled:
		q = q.Where("status = ?", status)
	default:
		return validationError("status must be active, completed or cancelled")
	}

	if v := c.Query("date_from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return validationError("date_from must be YYYY-MM-DD")
		}
		q = q.Where("pickup_date >= ?", from)
	}
	if v := c.Query("date_to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return validationError("date_to must be YYYY-MM-DD")
		}
		q = q.Where("pickup_date < ?", to.AddDate(0, 0, 1))
	}
	if v := strings.TrimSpace(c.Query("pickup_location")); v != "" {
		q = q.Where("LOWER(pickup_location) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	if v := strings.TrimSpace(c.Query("delivery_location")); v != "" {
		q = q.Where("LOWER(delivery_location) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	if v := c.Query("transport_type_id"); v != "" {
		q = q.Where("transport_type_id = ?", v)
	}
	if v := c.Query("cargo_type_id"); v != "" {
		q = q.Where("cargo_type_id = ?", v)
	}
	if v := strings.TrimSpace(c.Query("currency")); v != "" {
		q = q.Where("preferred_currency_id IN (SELECT id FROM currencies WHERE code = ?)", strings.ToUpper(v))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return err
	}

	pageNo, limit := pagination(c)
	var shipments []models.Shipment
	err := withReferences(q).
		Order("created_at DESC").
		Offset((pageNo - 1) * limit).
		Limit(limit).
		Find(&shipments).Error
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, page{Items: shipments, Page: pageNo, Limit: limit, Total: total})
}

// GetShipment shows one listing together with the caller's own bids on it.
func (h *Handler) GetShipment(c *fiber.Ctx) error {
	platform := middlewares.CurrentPlatform(c)
	db := h.DB.WithContext(c.UserContext())

	var shipment models.Shipment
	err := withReferences(db).Where("id = ?", c.Params("id")).Take(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return bidding.ErrShipmentNotFound
	}
	if err != nil {
		return err
	}

	var bids []models.Bid
	err = db.Preload("Currency").
		Where("shipment_id = ? AND platform_id = ?", shipment.ID, platform.ID).
		Order("created_at DESC, id DESC").
		Find(&bids).Error
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"shipment": shipment, "my_bids": bids})
}
