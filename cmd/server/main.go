package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/robfig/cron"
	"golang.org/x/time/rate"

	config "github.com/dkrasov/postline/configs"
	"github.com/dkrasov/postline/internal/api/handlers"
	"github.com/dkrasov/postline/internal/api/middleware"
	"github.com/dkrasov/postline/internal/channel"
	"github.com/dkrasov/postline/internal/database"
	job "github.com/dkrasov/postline/internal/jobs"
	"github.com/dkrasov/postline/internal/locker"
	"github.com/dkrasov/postline/internal/queue"
	"github.com/dkrasov/postline/internal/repository"
	"github.com/dkrasov/postline/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	if err := database.RunMigrations(cfg.PostgresURI); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db, err := database.Open(cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  1 * time.Minute,
		WriteTimeout: 1 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	tenantRepo := repository.NewTenantRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	lockRepo := repository.NewLockRepository(db)
	ratioRepo := repository.NewRatioRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)

	primary := channel.NewWebhookChannel(time.Duration(cfg.WebhookTimeout) * time.Second)
	secondary := channel.NewNotifyChannel(nil)
	itemLocks := locker.New()
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.PrimaryRatePerMinute)/60.0), cfg.PrimaryRatePerMinute)

	schedulerService := service.NewSchedulerService(tenantRepo, mediaRepo, queueRepo, lockRepo, ratioRepo,
		time.Duration(cfg.JitterMinutes)*time.Minute)
	deliveryService := service.NewDeliveryService(queueRepo, mediaRepo, lockRepo, historyRepo, tenantRepo,
		primary, secondary, itemLocks, limiter, service.DeliveryConfig{
			RetryCeiling: cfg.RetryCeiling,
			BackoffBase:  time.Duration(cfg.BackoffBase) * time.Minute,
			BackoffCap:   time.Duration(cfg.BackoffCap) * time.Minute,
			LockTTL:      time.Duration(cfg.LockTTLDays) * 24 * time.Hour,
		})
	ratioService := service.NewRatioService(ratioRepo)
	lockService := service.NewLockService(lockRepo, queueRepo, mediaRepo)
	queueService := service.NewQueueService(queueRepo, historyRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	schedule := handlers.NewScheduleHandler(schedulerService)
	api.Post("/schedule/generate", schedule.Generate)

	queueH := handlers.NewQueueHandler(queueService, deliveryService, lockService, client)
	api.Get("/queue", queueH.ListQueue)
	api.Get("/history", queueH.ListHistory)
	api.Post("/queue/post-now", queueH.PostNow)
	api.Post("/queue/reject", queueH.Reject)
	api.Get("/locks", queueH.ListLocks)
	api.Post("/delivery/run", queueH.RunDelivery)

	ratio := handlers.NewRatioHandler(ratioService)
	api.Get("/ratios", ratio.GetCurrent)
	api.Post("/ratios/update", ratio.UpdateRatios)
	api.Get("/ratios/history", ratio.History)

	// cron jobs
	tickJob := job.NewTickJob(tenantRepo, deliveryService, lockService, cfg.DefaultTenantID, cfg.TenantConcurrency)

	c := cron.New()
	c.AddFunc(cfg.TickSpec, tickJob.Run)
	c.AddFunc(cfg.PurgeSpec, tickJob.PurgeLocks)
	c.Start()

	// queue worker for out-of-band post-now actions
	postNowQueue := queue.NewQueue(deliveryService)

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})

	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePostNow, postNowQueue.HandlePostNowTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, db, c, server, tickJob)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, c *cron.Cron, server *asynq.Server, tickJob *job.TickJob) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	// Stop new work first; items already in flight finish their current
	// transition before the process exits.
	c.Stop()
	tickJob.Shutdown()
	server.Shutdown()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
