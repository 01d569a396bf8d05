package controllers

import (
	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/metadata"
	"cargo-bidding-backend/middlewares"
	"cargo-bidding-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

// Handler holds what the HTTP handlers need. State changes on bids and
// shipments always go through Bidding; DB is used for reads.
type Handler struct {
	DB       *gorm.DB
	Bidding  *bidding.Service
	Metadata *metadata.Resolver
	JWT      *middlewares.JWT
}

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}

type page struct {
	Items any   `json:"items"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// pagination reads ?page and ?limit (1-based page, limit capped).
func pagination(c *fiber.Ctx) (pageNo, limit int) {
	pageNo = utils.ParseIntDefault(c.Query("page"), 1)
	if pageNo < 1 {
		pageNo = 1
	}
	limit = utils.ParseIntDefault(c.Query("limit"), defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return pageNo, limit
}

func validationError(message string) error {
	return middlewares.NewAPIError(fiber.StatusBadRequest, "VALIDATION_ERROR", message)
}

func withReferences(db *gorm.DB) *gorm.DB {
	return db.Preload("CargoType").Preload("VolumeUnit").Preload("TransportType").Preload("PreferredCurrency")
}
