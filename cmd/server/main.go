package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/script-to-video/internal/app"
	"github.com/codebuildervaibhav/script-to-video/internal/cleanup"
	"github.com/codebuildervaibhav/script-to-video/internal/config"
	"github.com/codebuildervaibhav/script-to-video/internal/handlers"
	"github.com/codebuildervaibhav/script-to-video/internal/queue"
	"github.com/codebuildervaibhav/script-to-video/internal/storage"
)

const uploadLimitKB = 64

func main() {
	// Custom logger setup
	logBuffer := NewLogBuffer(logBufferLines)
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure directories exist
	if err := cleanup.EnsureDirExists(cfg.Storage.WorkspaceDir); err != nil {
		log.Fatalf("Failed to create workspace directory: %v", err)
	}
	if err := cleanup.EnsureDirExists(cfg.Storage.OutputDir); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	log.Println("Initializing components...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components := app.Build(cfg)
	defaults := app.Defaults(cfg)

	// Local storage
	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	// Google Drive client (optional - may fail if credentials not set up)
	var uploader queue.Uploader
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err := storage.NewDriveClient(ctx,
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Videos will only be saved locally")
		} else {
			uploader = driveClient
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	// Database
	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Worker pool
	workerPool := queue.NewWorkerPool(
		cfg.Workers.Count,
		cfg.Workers.QueueSize,
		components.Pipeline,
		localStorage,
		uploader,
		db,
	)
	workerPool.Start()
	defer workerPool.Stop()

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.WorkspaceDir,
		cfg.Storage.OutputDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
		cfg.Cleanup.OutputMaxDays,
	)
	cleanupScheduler.Active = components.Workspaces.Active
	cleanupScheduler.Pruner = workerPool
	if err := cleanupScheduler.Start(); err != nil {
		log.Fatalf("Failed to start cleanup scheduler: %v", err)
	}
	defer cleanupScheduler.Stop()

	// Redis request feed (optional)
	if cfg.Redis.Enabled {
		rdb := queue.NewRedisClient(cfg.Redis.Addr)
		defer rdb.Close()
		feeder := queue.NewRedisFeeder(rdb, workerPool, defaults, cfg.Redis.RequestList, cfg.Redis.ResultChannel)
		go func() {
			if err := feeder.Run(ctx); err != nil {
				log.Printf("WARNING: Redis feed stopped: %v", err)
			}
		}()
	}

	// Create Fiber app
	fiberApp := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})

	// Middleware
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	renderHandler := handlers.NewRenderHandler(workerPool, defaults)
	uploadHandler := handlers.NewUploadHandler(workerPool, defaults, uploadLimitKB)
	gdriveHandler := handlers.NewGDriveHandler(workerPool, defaults, components.Fetcher)
	streamHandler := handlers.NewStreamHandler(workerPool, defaults)
	jobsHandler := handlers.NewJobsHandler(workerPool, db)

	// Routes
	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	fiberApp.Post("/render", renderHandler.Handle)
	fiberApp.Post("/render/upload", uploadHandler.Handle)
	fiberApp.Post("/render/gdrive", gdriveHandler.Handle)

	// WebSocket route
	fiberApp.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	fiberApp.Get("/ws/render", websocket.New(streamHandler.Handle))

	fiberApp.Get("/jobs/:id", jobsHandler.Get)
	fiberApp.Get("/jobs/:id/video", jobsHandler.Video)
	fiberApp.Get("/renders", jobsHandler.List)

	// Get server logs
	fiberApp.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Server starting on %s", addr)
	log.Println("📝 Endpoints:")
	log.Println("   POST /render            - Render a script (JSON)")
	log.Println("   POST /render/upload     - Render an uploaded script file")
	log.Println("   POST /render/gdrive     - Render a script shared on Google Drive")
	log.Println("   GET  /ws/render         - WebSocket render with live status")
	log.Println("   GET  /jobs/:id          - Job status")
	log.Println("   GET  /jobs/:id/video    - Download the rendered video")
	log.Println("   GET  /renders           - List recent renders")
	log.Println("   GET  /logs              - View server logs")
	log.Println("   GET  /health            - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		cancel()
		fiberApp.Shutdown()
	}()

	if err := fiberApp.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
