package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"cargo-bidding-backend/bidding"
	"cargo-bidding-backend/metadata"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// APIError is a client error with a machine-readable code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// ErrorHandler centralizes error responses and keeps messages sanitized.
// Every error body has the shape {"success": false, "error": {"code", "message"}}.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			apiErr     *APIError
			fiberErr   *fiber.Error
			admission  *bidding.AdmissionError
			transition *bidding.TransitionError
			invalid    validator.ValidationErrors
		)

		switch {
		case errors.As(err, &apiErr):
			return writeError(c, apiErr.Status, apiErr.Code, apiErr.Message, nil)

		case errors.As(err, &fiberErr):
			return writeError(c, fiberErr.Code, statusCode(fiberErr.Code), fiberErr.Message, nil)

		case errors.As(err, &invalid):
			fields := make(map[string]string, len(invalid))
			for _, fe := range invalid {
				fields[fe.Field()] = fe.Tag()
			}
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "validation failed", fields)

		case errors.As(err, &admission):
			return writeError(c, fiber.StatusConflict, string(admission.Reason), admission.Reason.Message(), nil)

		case errors.As(err, &transition):
			return writeError(c, fiber.StatusConflict, transition.Code, transition.Message, nil)

		case errors.Is(err, bidding.ErrShipmentNotFound):
			return writeError(c, fiber.StatusNotFound, "SHIPMENT_NOT_FOUND", err.Error(), nil)

		case errors.Is(err, bidding.ErrBidNotFound):
			return writeError(c, fiber.StatusNotFound, "BID_NOT_FOUND", err.Error(), nil)

		case errors.Is(err, metadata.ErrCurrencyNotFound):
			return writeError(c, fiber.StatusBadRequest, "CURRENCY_NOT_FOUND", err.Error(), nil)
		}

		log.Error("internal error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}

func writeError(c *fiber.Ctx, status int, code, message string, fields map[string]string) error {
	body := fiber.Map{"code": code, "message": message}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": body})
}

// statusCode turns 404 into NOT_FOUND and so on.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
