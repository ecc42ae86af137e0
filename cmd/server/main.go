package main

import (
	"context"
	"errors"
	"strings"

	"lengolf-closing/internal/audit"
	"lengolf-closing/internal/auth"
	"lengolf-closing/internal/closing"
	"lengolf-closing/internal/config"
	"lengolf-closing/internal/database"
	"lengolf-closing/internal/models"
	"lengolf-closing/internal/sales"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)
	logger := config.GetLogger()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			config.LogError(logger, "server", "ErrorHandler", c.Path(), nil, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	// Without redis, concurrent closes are still stopped by the unique
	// index on closing_date.
	var lock closing.CloseLock = closing.NoopCloseLock{}
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Fatal("redis not reachable")
		}
		defer rdb.Close()
		lock = closing.NewRedisCloseLock(rdb)
	}

	closingSvc := closing.NewService(closing.ServiceOptions{
		Store: closing.NewGormStore(database.DB),
		Staff: auth.PINVerifier{DB: database.DB},
		Lock:  lock,
		Info: closing.StoreInfo{
			Name:    cfg.StoreName,
			Address: cfg.StoreAddress,
			TaxID:   cfg.StoreTaxID,
		},
		Logger: logger,
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Staff management
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))
	adminRoutes.Post("/staff", auth.CreateStaffHandler())
	adminRoutes.Put("/staff/:id/pin", auth.SetStaffPINHandler())

	// Day closing
	closing.Register(protected, closingSvc)

	// Sales
	protected.Post("/sales", sales.CreateSaleHandler())
	protected.Get("/sales", sales.ListSalesHandler())
	protected.Post("/sales/:id/void", sales.VoidSaleHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	logger.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
