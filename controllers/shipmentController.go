package controllers

import (
	"context"
	"errors"
	"time"

	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/middlewares"
	"cargo-bidding-backend/models"
	"cargo-bidding-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateShipmentRequest struct {
	PickupLocation       string          `json:"pickup_location" validate:"required,max=255"`
	PickupDate           string          `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	DeliveryLocation     string          `json:"delivery_location" validate:"required,max=255"`
	CargoTypeID          string          `json:"cargo_type_id" validate:"required"`
	CargoVolume          decimal.Decimal `json:"cargo_volume" validate:"required,gt=0"`
	VolumeUnitID         string          `json:"volume_unit_id" validate:"required"`
	TransportTypeID      string          `json:"transport_type_id" validate:"required"`
	PreferredCurrency    string          `json:"preferred_currency" validate:"required,len=3"`
	AdditionalConditions string          `json:"additional_conditions" validate:"max=500"`
}

// UpdateShipmentRequest only carries descriptive fields; status and the
// preferred currency cannot change after bids may have been placed.
type UpdateShipmentRequest struct {
	PickupLocation       *string          `json:"pickup_location" validate:"omitempty,max=255"`
	PickupDate           *string          `json:"pickup_date" validate:"omitempty,datetime=2006-01-02" patch:"-"`
	DeliveryLocation     *string          `json:"delivery_location" validate:"omitempty,max=255"`
	CargoVolume          *decimal.Decimal `json:"cargo_volume" validate:"omitempty,gt=0"`
	AdditionalConditions *string          `json:"additional_conditions" validate:"omitempty,max=500"`
}

func (h *Handler) CreateShipment(c *fiber.Ctx) error {
	var req CreateShipmentRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if !utils.FitsMoneyColumn(req.CargoVolume) {
		return validationError("cargo_volume must have at most 2 decimal places")
	}
	utils.NormalizeDTO(&req)

	ctx := c.UserContext()
	pickup, err := parsePickupDate(req.PickupDate)
	if err != nil {
		return err
	}
	currency, err := h.Metadata.ResolveCurrency(ctx, req.PreferredCurrency)
	if err != nil {
		return err
	}
	refs := []struct {
		model any
		id    string
		field string
	}{
		{&models.CargoType{}, req.CargoTypeID, "cargo_type_id"},
		{&models.VolumeUnit{}, req.VolumeUnitID, "volume_unit_id"},
		{&models.TransportType{}, req.TransportTypeID, "transport_type_id"},
	}
	for _, ref := range refs {
		if err := h.requireReference(ctx, ref.model, ref.id, ref.field); err != nil {
			return err
		}
	}

	shipment := models.Shipment{
		UserID:               middlewares.UserID(c),
		PickupLocation:       req.PickupLocation,
		PickupDate:           pickup,
		DeliveryLocation:     req.DeliveryLocation,
		CargoTypeID:          req.CargoTypeID,
		CargoVolume:          req.CargoVolume,
		VolumeUnitID:         req.VolumeUnitID,
		TransportTypeID:      req.TransportTypeID,
		PreferredCurrencyID:  currency.ID,
		AdditionalConditions: req.AdditionalConditions,
		Status:               models.ShipmentActive,
	}
	if err := h.DB.WithContext(ctx).Create(&shipment).Error; err != nil {
		return err
	}
	if err := withReferences(h.DB.WithContext(ctx)).Take(&shipment, "id = ?", shipment.ID).Error; err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, shipment)
}

func (h *Handler) requireReference(ctx context.Context, model any, id, field string) error {
	ok, err := h.Metadata.Exists(ctx, model, id)
	if err != nil {
		return err
	}
	if !ok {
		return validationError(field + " does not reference an active entry")
	}
	return nil
}

func parsePickupDate(v string) (time.Time, error) {
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, validationError("pickup_date must be YYYY-MM-DD")
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if d.Before(today) {
		return time.Time{}, validationError("pickup_date cannot be in the past")
	}
	return d, nil
}

// GetMyShipments lists the owner's shipments, newest first.
func (h *Handler) GetMyShipments(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext()).Model(&models.Shipment{}).Where("user_id = ?", middlewares.UserID(c))
	if v := c.Query("status"); v != "" {
		switch models.ShipmentStatus(v) {
		case models.ShipmentActive, models.ShipmentCompleted, models.ShipmentCancelled:
			q = q.Where("status = ?", v)
		default:
			return validationError("status must be active, completed or cancelled")
		}
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

// GetMyShipment returns one of the owner's shipments with every bid on it.
func (h *Handler) GetMyShipment(c *fiber.Ctx) error {
	var shipment models.Shipment
	err := withReferences(h.DB.WithContext(c.UserContext())).
		Preload("Bids", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Preload("Bids.Currency").
		Where("id = ? AND user_id = ?", c.Params("id"), middlewares.UserID(c)).
		Take(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return bidding.ErrShipmentNotFound
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, shipment)
}

func (h *Handler) UpdateShipment(c *fiber.Ctx) error {
	var req UpdateShipmentRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if req.CargoVolume != nil && !utils.FitsMoneyColumn(*req.CargoVolume) {
		return validationError("cargo_volume must have at most 2 decimal places")
	}
	utils.NormalizePtrDTO(&req)

	updates := utils.UpdatesFromPtrDTO(&req)
	if req.PickupDate != nil {
		d, err := parsePickupDate(*req.PickupDate)
		if err != nil {
			return err
		}
		updates["pickup_date"] = d
	}
	if len(updates) == 0 {
		return validationError("nothing to update")
	}

	shipment, err := h.ownedShipment(c)
	if err != nil {
		return err
	}
	if !shipment.IsActive() {
		return bidding.ErrShipmentNotActive
	}
	updates["updated_at"] = time.Now().UTC()

	db := h.DB.WithContext(c.UserContext())
	res := db.Model(&models.Shipment{}).
		Where("id = ? AND status = ?", shipment.ID, models.ShipmentActive).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return bidding.ErrShipmentNotActive
	}
	if err := withReferences(db).Take(shipment, "id = ?", shipment.ID).Error; err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, shipment)
}

func (h *Handler) AcceptBid(c *fiber.Ctx) error {
	shipment, err := h.ownedShipment(c)
	if err != nil {
		return err
	}
	shipment, err = h.Bidding.AcceptBid(c.UserContext(), shipment.ID, c.Params("bidId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, shipment)
}

func (h *Handler) RejectBid(c *fiber.Ctx) error {
	shipment, err := h.ownedShipment(c)
	if err != nil {
		return err
	}
	bid, err := h.Bidding.RejectBid(c.UserContext(), shipment.ID, c.Params("bidId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, bid)
}

func (h *Handler) CancelShipment(c *fiber.Ctx) error {
	shipment, err := h.ownedShipment(c)
	if err != nil {
		return err
	}
	shipment, err = h.Bidding.CancelShipment(c.UserContext(), shipment.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, shipment)
}

func (h *Handler) RejectPendingBids(c *fiber.Ctx) error {
	shipment, err := h.ownedShipment(c)
	if err != nil {
		return err
	}
	n, err := h.Bidding.RejectAllPendingBids(c.UserContext(), shipment.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"rejected": n})
}

// ownedShipment loads :id if it belongs to the caller. Other owners'
// shipments look the same as missing ones.
func (h *Handler) ownedShipment(c *fiber.Ctx) (*models.Shipment, error) {
	var shipment models.Shipment
	err := h.DB.WithContext(c.UserContext()).
		Where("id = ? AND user_id = ?", c.Params("id"), middlewares.UserID(c)).
		Take(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, bidding.ErrShipmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}
