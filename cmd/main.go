package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"workflow-service/internal/clients"
	"workflow-service/internal/config"
	"workflow-service/internal/events"
	"workflow-service/internal/handlers"
	"workflow-service/internal/jobs"
	"workflow-service/internal/middleware"
	"workflow-service/internal/models"
	"workflow-service/internal/repository"
	"workflow-service/internal/seeders"
	"workflow-service/internal/services"
)

// @title Workflow Service API
// @version 1.0.0
// @description Multi-stage approval workflow engine

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8099
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&models.WorkflowTemplate{},
		&models.ApprovalWorkflow{},
		&models.ApprovalRequest{},
		&models.StageInstance{},
		&models.ApprovalAction{},
		&models.ApprovalDelegation{},
	); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Seed system templates
	if err := seeders.SeedSystemTemplates(db); err != nil {
		logger.Warnf("Failed to seed system templates: %v", err)
	}

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	// Initialize event publisher (optional - service works without NATS)
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Warnf("Failed to initialize event publisher: %v. Events will not be published.", err)
			publisher = nil
		} else {
			logger.Info("Event publisher initialized")
			defer publisher.Close()
		}
	} else {
		logger.Info("NATS_URL not configured, event publishing disabled")
	}

	// Entity state pushes go to the service owning the target entities
	entityClient := clients.NewEntityClient(cfg.EntityServiceURL)

	// Initialize services
	var notifier services.Notifier
	if publisher != nil {
		notifier = publisher
	}
	requestService := services.NewRequestService(requestRepo, templateRepo, entityClient, notifier, logger)
	templateService := services.NewTemplateService(templateRepo, logger)
	delegationService := services.NewDelegationService(requestRepo, logger)

	// Initialize handlers
	requestHandler := handlers.NewRequestHandler(requestService)
	templateHandler := handlers.NewTemplateHandler(templateService)
	delegationHandler := handlers.NewDelegationHandler(delegationService)

	// Start escalation job
	var jobNotifier jobs.Notifier
	if publisher != nil {
		jobNotifier = publisher
	}
	escalationJob := jobs.NewEscalationJob(requestRepo, jobNotifier, logger, cfg.EscalationInterval)
	jobCtx, jobCancel := context.WithCancel(context.Background())
	go escalationJob.Start(jobCtx)
	logger.Info("Escalation job started")

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	api.Use(middleware.TenantMiddleware())

	// Request endpoints
	{
		api.POST("/requests", requestHandler.CreateRequest)
		api.GET("/requests", requestHandler.ListRequests)
		api.GET("/requests/my-requests", requestHandler.ListMyRequests)
		api.POST("/requests/bulk-actions", requestHandler.BulkAction)
		api.GET("/requests/:id", requestHandler.GetRequest)
		api.DELETE("/requests/:id", requestHandler.CancelRequest)
		api.GET("/requests/:id/history", requestHandler.GetHistory)
		api.POST("/requests/:id/actions", requestHandler.ApplyAction)
	}

	// Delegation endpoints
	{
		api.POST("/delegations", delegationHandler.CreateDelegation)
		api.GET("/delegations/outgoing", delegationHandler.ListGiven)
		api.GET("/delegations/incoming", delegationHandler.ListReceived)
		api.POST("/delegations/:id/revoke", delegationHandler.RevokeDelegation)
	}

	// Admin endpoints for template and workflow management
	admin := api.Group("/admin")
	{
		admin.POST("/templates", templateHandler.CreateTemplate)
		admin.GET("/templates", templateHandler.ListTemplates)
		admin.GET("/templates/:id", templateHandler.GetTemplate)
		admin.POST("/templates/:id/revisions", templateHandler.ReviseTemplate)
		admin.POST("/templates/:id/activate", templateHandler.ActivateTemplate)
		admin.GET("/workflows", templateHandler.ListWorkflows)
		admin.PUT("/workflows/:id/active", templateHandler.SetWorkflowActive)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	port := cfg.Port
	if port == "" {
		port = "8099"
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("Workflow service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	jobCancel()
	escalationJob.Stop()
	logger.Info("Escalation job stopped")

	logger.Info("Server shutdown complete")
}
