package auth

import (
	"errors"
	"strings"

	"lengolf-closing/internal/config"
	"lengolf-closing/internal/database"
	"lengolf-closing/internal/models"
	"lengolf-closing/internal/validate"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterSuperAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateStaffRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	PIN      string `json:"pin" validate:"omitempty,numeric,min=4,max=8"`
}

type SetPINRequest struct {
	PIN string `json:"pin" validate:"required,numeric,min=4,max=8"`
}

var validator = validate.New()

func RegisterSuperAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.Email == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
		}

		// Only the first admin can self-register.
		var count int64
		database.DB.Model(&models.User{}).
			Where("role = ?", models.RoleSuperAdmin).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "A super admin already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleSuperAdmin,
			Active:       true,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ? AND active = ?", body.Email, true).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Wrong email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Wrong email or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not issue token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":      user.ID,
				"name":    user.Name,
				"email":   user.Email,
				"role":    user.Role,
				"has_pin": user.PinHash != nil,
			},
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(CtxUserIDKey).(uint)

		var user models.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			return c.JSON(fiber.Map{
				"user_id": userID,
				"role":    c.Locals(CtxUserRoleKey),
			})
		}

		return c.JSON(fiber.Map{
			"user_id": user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"role":    user.Role,
			"has_pin": user.PinHash != nil,
		})
	}
}

// -------------------------------------------------
// POST /api/admin/staff
// -------------------------------------------------
func CreateStaffHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStaffRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if err := validator.Struct(body); err != nil {
			field, tag, _ := validate.FirstError(err)
			return fiber.NewError(fiber.StatusBadRequest, field+" failed on "+tag)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleStaff,
			Active:       true,
		}
		if body.PIN != "" {
			if err := checkPINAvailable(c, body.PIN, 0); err != nil {
				return err
			}
			pinHash, err := HashPIN(body.PIN)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not hash PIN")
			}
			user.PinHash = &pinHash
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Could not create staff (duplicate email?)")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":      user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"role":    user.Role,
			"has_pin": user.PinHash != nil,
		})
	}
}

// -------------------------------------------------
// PUT /api/admin/staff/:id/pin
// -------------------------------------------------
func SetStaffPINHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid staff id")
		}

		var body SetPINRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validator.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "pin must be 4-8 digits")
		}

		var staff models.User
		if err := database.DB.First(&staff, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Staff not found")
		}
		if err := checkPINAvailable(c, body.PIN, staff.ID); err != nil {
			return err
		}

		pinHash, err := HashPIN(body.PIN)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash PIN")
		}

		if err := database.DB.Model(&staff).Update("pin_hash", pinHash).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update PIN")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// checkPINAvailable keeps PINs unique among active staff.
func checkPINAvailable(c *fiber.Ctx, pin string, owner uint) error {
	err := PINVerifier{DB: database.DB}.CheckAvailable(c.UserContext(), pin, owner)
	switch {
	case errors.Is(err, ErrPINTaken):
		return fiber.NewError(fiber.StatusConflict, "PIN already used by another staff member")
	case err != nil:
		return fiber.NewError(fiber.StatusInternalServerError, "Could not check PIN")
	}
	return nil
}
