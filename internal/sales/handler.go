package sales

import (
	"fmt"
	"strings"
	"time"

	"lengolf-closing/internal/audit"
	"lengolf-closing/internal/auth"
	"lengolf-closing/internal/config"
	"lengolf-closing/internal/database"
	"lengolf-closing/internal/models"
	"lengolf-closing/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type CreateSaleRequest struct {
	Date        *string              `json:"date"` // "2026-10-16", today when empty
	Method      models.PaymentMethod `json:"method" validate:"required,oneof=cash credit_card qr other"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description" validate:"max=255"`
}

type VoidSaleRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type SaleResponse struct {
	ID          uint                 `json:"id"`
	Date        string               `json:"date"`
	Method      models.PaymentMethod `json:"method"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description"`
	Voided      bool                 `json:"voided"`
	VoidReason  string               `json:"void_reason,omitempty"`
}

var validator = validate.New()

func toResponse(s models.Sale) SaleResponse {
	return SaleResponse{
		ID:          s.ID,
		Date:        s.SaleDate.Format(dateLayout),
		Method:      s.Method,
		Amount:      s.Amount,
		Description: s.Description,
		Voided:      s.Voided,
		VoidReason:  s.VoidReason,
	}
}

// ParseSaleDate returns the calendar date of now for an empty value.
func ParseSaleDate(raw *string, now time.Time) (time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(dateLayout, strings.TrimSpace(*raw))
}

func currentUser(c *fiber.Ctx) (uint, string) {
	userID, _ := c.Locals(auth.CtxUserIDKey).(uint)
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return userID, ""
	}
	return userID, user.Name
}

// dayClosed reports whether a reconciliation exists for day. Sales of a
// closed day are frozen.
func dayClosed(day time.Time) (bool, error) {
	var count int64
	err := database.DB.Model(&models.Reconciliation{}).Where("closing_date = ?", day).Count(&count).Error
	return count > 0, err
}

// -------------------------------------------------
// POST /api/sales
// -------------------------------------------------
func CreateSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validator.Struct(body); err != nil {
			field, tag, _ := validate.FirstError(err)
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s failed on %s", field, tag))
		}
		if !body.Amount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than 0")
		}

		date, err := ParseSaleDate(body.Date, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}

		closed, err := dayClosed(date)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not check closing state")
		}
		if closed {
			return fiber.NewError(fiber.StatusConflict, "This day is already closed")
		}

		userID, userName := currentUser(c)
		sale := models.Sale{
			SaleDate:    date,
			Method:      body.Method,
			Amount:      body.Amount.Round(2),
			Description: body.Description,
			RecordedBy:  userID,
		}
		if err := database.DB.Create(&sale).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not save sale")
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Sale recorded: %s %s", sale.Method, sale.Amount.StringFixed(2)),
			After:       toResponse(sale),
		}); logErr != nil {
			config.LogError(config.GetLogger(), "sales", "CreateSaleHandler", "audit log write failed", sale.ID, logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(sale))
	}
}

// -------------------------------------------------
// GET /api/sales?from=2026-10-01&to=2026-10-31&method=cash
// -------------------------------------------------
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Sale{})

		if fromStr := c.Query("from"); fromStr != "" {
			from, err := time.Parse(dateLayout, fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
			}
			dbq = dbq.Where("sale_date >= ?", from)
		}
		if toStr := c.Query("to"); toStr != "" {
			to, err := time.Parse(dateLayout, toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
			}
			dbq = dbq.Where("sale_date <= ?", to)
		}
		if method := c.Query("method"); method != "" {
			if !models.PaymentMethod(method).Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "method must be cash|credit_card|qr|other")
			}
			dbq = dbq.Where("method = ?", method)
		}

		var sales []models.Sale
		if err := dbq.Order("sale_date asc, id asc").Find(&sales).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list sales")
		}

		resp := make([]SaleResponse, 0, len(sales))
		for _, s := range sales {
			resp = append(resp, toResponse(s))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// POST /api/sales/:id/void
// -------------------------------------------------
func VoidSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid sale id")
		}

		var body VoidSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validator.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "reason is required")
		}

		var sale models.Sale
		if err := database.DB.First(&sale, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sale not found")
		}
		if sale.Voided {
			return fiber.NewError(fiber.StatusConflict, "Sale is already voided")
		}

		closed, err := dayClosed(sale.SaleDate)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not check closing state")
		}
		if closed {
			return fiber.NewError(fiber.StatusConflict, "This day is already closed")
		}

		before := toResponse(sale)
		now := time.Now()
		sale.Voided = true
		sale.VoidReason = body.Reason
		sale.VoidedAt = &now
		if err := database.DB.Save(&sale).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not void sale")
		}

		userID, userName := currentUser(c)
		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionVoid,
			Description: fmt.Sprintf("Sale voided: %s %s (%s)", sale.Method, sale.Amount.StringFixed(2), body.Reason),
			Before:      before,
			After:       toResponse(sale),
		}); logErr != nil {
			config.LogError(config.GetLogger(), "sales", "VoidSaleHandler", "audit log write failed", sale.ID, logErr)
		}

		return c.JSON(toResponse(sale))
	}
}
