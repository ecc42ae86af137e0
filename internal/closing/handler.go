package closing

import (
	"errors"

	"lengolf-closing/internal/config"

	"github.com/gofiber/fiber/v2"
)

// toFiberError maps the closing error taxonomy onto HTTP statuses.
func toFiberError(err error, funcName string) error {
	var verr *ValidationError
	var aerr *AuthError
	var serr *SubmitError
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, verr.Error())
	case errors.As(err, &aerr):
		return fiber.NewError(fiber.StatusUnauthorized, aerr.Message)
	case errors.As(err, &serr) && serr.Conflict:
		return fiber.NewError(fiber.StatusConflict, serr.Message)
	case errors.As(err, &serr):
		return fiber.NewError(fiber.StatusUnprocessableEntity, serr.Message)
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Reconciliation not found")
	}
	config.LogError(config.GetLogger(), "closing", funcName, "unexpected error", nil, err)
	return fiber.NewError(fiber.StatusInternalServerError, "Unexpected server error")
}

// -------------------------------------------------
// GET /api/closing/history?start_date=2026-10-01&end_date=2026-10-16&limit=1
// -------------------------------------------------
func HistoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recs, err := svc.History(c.UserContext(), c.Query("start_date"), c.Query("end_date"), c.QueryInt("limit"))
		if err != nil {
			return toFiberError(err, "HistoryHandler")
		}
		return c.JSON(HistoryResponse{Reconciliations: recs})
	}
}

// -------------------------------------------------
// GET /api/closing/summary?date=2026-10-16
// -------------------------------------------------
func SummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := svc.Summary(c.UserContext(), c.Query("date"))
		if err != nil {
			return toFiberError(err, "SummaryHandler")
		}
		return c.JSON(summary)
	}
}

// -------------------------------------------------
// POST /api/closing/submit
// -------------------------------------------------
func SubmitHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SubmitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		rec, err := svc.Submit(c.UserContext(), body)
		if err != nil {
			return toFiberError(err, "SubmitHandler")
		}
		return c.Status(fiber.StatusCreated).JSON(SubmitResponse{Reconciliation: rec})
	}
}

// -------------------------------------------------
// POST /api/closing/print-thermal
// -------------------------------------------------
func PrintThermalHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PrintThermalRequest
		if err := c.BodyParser(&body); err != nil || body.ReconciliationID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "reconciliationId is required")
		}

		data, err := svc.PrintData(c.UserContext(), body.ReconciliationID)
		if err != nil {
			return toFiberError(err, "PrintThermalHandler")
		}
		return c.JSON(PrintThermalResponse{Success: true, ClosingData: data})
	}
}

// Register mounts the closing routes on an authenticated router.
func Register(router fiber.Router, svc *Service) {
	router.Get("/closing/history", HistoryHandler(svc))
	router.Get("/closing/summary", SummaryHandler(svc))
	router.Post("/closing/submit", SubmitHandler(svc))
	router.Post("/closing/print-thermal", PrintThermalHandler(svc))
}
