package controllers

import (
	"errors"
	"strings"
	"time"

	"cargo-bidding-backend/middlewares"
	"cargo-bidding-backend/models"
	"cargo-bidding-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	CompanyName     string `json:"company_name" validate:"max=200"`
	Mobile          string `json:"mobile" validate:"max=20"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	password := req.Password
	utils.NormalizeDTO(&req)
	req.Email = strings.ToLower(req.Email)

	var taken int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return middlewares.NewAPIError(fiber.StatusConflict, "EMAIL_TAKEN", "email already exists")
	}

	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		CompanyName: req.CompanyName,
		Mobile:      req.Mobile,
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return middlewares.NewAPIError(fiber.StatusConflict, "EMAIL_TAKEN", "email already exists")
		}
		return err
	}
	return respond(c, fiber.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	invalid := middlewares.NewAPIError(fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")

	var user models.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid
	}
	if err != nil {
		return err
	}
	if err := user.ComparePassword(req.Password); err != nil {
		return invalid
	}

	token, err := h.JWT.Generate(user.ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"name":  user.FullName(),
			"email": user.Email,
		},
	})
}

// Logout is a no-op for Bearer tokens; it clears the legacy cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return respond(c, fiber.StatusOK, fiber.Map{"message": "success"})
}
