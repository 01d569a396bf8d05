package routes

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"cargo-bidding-backend/config"
	"cargo-bidding-backend/controllers"
	"cargo-bidding-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, h *controllers.Handler, log *slog.Logger) {
	// Platform API (API key auth)
	v1 := app.Group("/api/v1")
	v1.Get("/metadata", h.GetMetadata)

	platform := v1.Group("", middlewares.PlatformAuth(db, log), middlewares.Idempotency(db, log))
	platform.Get("/shipments", h.ListShipments)
	platform.Get("/shipments/:id", h.GetShipment)
	platform.Post("/shipments/:id/bids", h.SubmitBid)
	platform.Get("/my-bids", h.MyBids)

	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", h.Register)
	api.Post("/login", h.Login)
	api.Post("/logout", h.Logout)

	// Owner endpoints (JWT auth), idempotency guard after auth
	owner := api.Group("", h.JWT.Authenticate(), middlewares.Idempotency(db, log))

	owner.Post("/shipments", h.CreateShipment)
	owner.Get("/shipments", h.GetMyShipments)
	owner.Get("/shipments/:id", h.GetMyShipment)
	owner.Patch("/shipments/:id", h.UpdateShipment)

	owner.Post("/shipments/:id/bids/:bidId/accept", h.AcceptBid)
	owner.Post("/shipments/:id/bids/:bidId/reject", h.RejectBid)
	owner.Post("/shipments/:id/cancel", h.CancelShipment)
	owner.Post("/shipments/:id/reject-pending", h.RejectPendingBids)
}

// NewApp builds the fiber app with the global middleware stack and all routes.
func NewApp(cfg config.ServerConfig, db *gorm.DB, h *controllers.Handler, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler(log),
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(middlewares.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
	}))

	Register(app, db, h, log)
	return app
}
