package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	config "github.com/tmuoka/servicehub/configs"
	"github.com/tmuoka/servicehub/database"
	"github.com/tmuoka/servicehub/handlers"
	"github.com/tmuoka/servicehub/jobs"
	"github.com/tmuoka/servicehub/repository"
	"github.com/tmuoka/servicehub/routes"
	"github.com/tmuoka/servicehub/services"
	"github.com/tmuoka/servicehub/utils"
)

func main() {
	zapLogger := utils.NewLogger(config.Config("ENV"))
	defer zapLogger.Sync()

	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()

	feeCfg := config.LoadPlatformFeeConfig()

	slotRepo := repository.NewSlotRepository(database.DB)
	bookingRepo := repository.NewBookingRepository(database.DB)
	earningRepo := repository.NewEarningRepository(database.DB)
	payoutRepo := repository.NewPayoutRepository(database.DB)

	reconciler := services.NewAvailabilityReconciler(slotRepo, zapLogger)
	ledger := services.NewEarningsLedger(bookingRepo, earningRepo, feeCfg, zapLogger)
	payoutSvc := services.NewPayoutService(payoutRepo, zapLogger)

	dispatcher := services.NewReconcileDispatcher(reconciler, zapLogger, 128)
	go dispatcher.Run()

	handlers.Init(reconciler, ledger, payoutSvc, dispatcher, bookingRepo)

	c := cron.New()
	c.AddFunc("0 * * * *", jobs.NewClearanceJob(ledger, zapLogger))
	go c.Start()
	log.Println("✅ Cron job for earnings clearance scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "ServiceHub",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, verif-hash",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Africa/Lagos",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to ServiceHub API",
		})
	})

	routes.PublicRoutes(app)
	routes.AuthRoutes(app)
	routes.ProviderRoutes(app)
	routes.BookingRoutes(app)
	routes.PaymentRoutes(app)
	routes.AdminRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	err := app.Listen(":8080")
	if err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
