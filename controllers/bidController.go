package controllers

import (
	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/middlewares"
	"cargo-bidding-backend/models"
	"cargo-bidding-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SubmitBidRequest struct {
	Price                 decimal.Decimal `json:"price" validate:"required,gt=0"`
	Currency              string          `json:"currency" validate:"required,len=3"`
	EstimatedDeliveryTime int             `json:"estimated_delivery_time" validate:"required,min=1"`
	CompanyName           string          `json:"company_name" validate:"required,max=200"`
	ContactPerson         string          `json:"contact_person" validate:"required,max=100"`
	ContactPhone          string          `json:"contact_phone" validate:"required,max=20"`
	ExternalUserID        string          `json:"external_user_id" validate:"max=100"`
	Comment               string          `json:"comment" validate:"max=500"`
}

func (h *Handler) SubmitBid(c *fiber.Ctx) error {
	var req SubmitBidRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if !utils.FitsMoneyColumn(req.Price) {
		return validationError("price must have at most 2 decimal places")
	}
	utils.NormalizeDTO(&req)

	bid, err := h.Bidding.SubmitBid(c.UserContext(), bidding.SubmitBidInput{
		ShipmentID:     c.Params("id"),
		Submitter:      middlewares.CurrentPlatform(c),
		Price:          req.Price,
		CurrencyCode:   req.Currency,
		ETA:            req.EstimatedDeliveryTime,
		CompanyName:    req.CompanyName,
		ContactPerson:  req.ContactPerson,
		ContactPhone:   req.ContactPhone,
		ExternalUserID: req.ExternalUserID,
		Comment:        req.Comment,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, bid)
}

// MyBids lists the calling platform's bids, newest first.
func (h *Handler) MyBids(c *fiber.Ctx) error {
	platform := middlewares.CurrentPlatform(c)
	q := h.DB.WithContext(c.UserContext()).Model(&models.Bid{}).Where("platform_id = ?", platform.ID)

	if v := c.Query("status"); v != "" {
		switch models.BidStatus(v) {
		case models.BidPending, models.BidAccepted, models.BidRejected:
			q = q.Where("status = ?", v)
		default:
			return validationError("status must be pending, accepted or rejected")
		}
	}
	if v := c.Query("shipment_id"); v != "" {
		q = q.Where("shipment_id = ?", v)
	}
	if v := c.Query("external_user_id"); v != "" {
		q = q.Where("external_user_id = ?", v)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return err
	}

	pageNo, limit := pagination(c)
	var bids []models.Bid
	err := q.Preload("Currency").
		Order("created_at DESC, id DESC").
		Offset((pageNo - 1) * limit).
		Limit(limit).
		Find(&bids).Error
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, page{Items: bids, Page: pageNo, Limit: limit, Total: total})
}
