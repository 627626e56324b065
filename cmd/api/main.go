package main

import (
	"context"
	"log"
	"os"

	_ "restchain/api/swagger" // swagger docs
	"restchain/internal/database"
	"restchain/internal/handler"
	"restchain/internal/middleware"
	"restchain/internal/repository"
	"restchain/internal/service"
	"restchain/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Restaurant Task Workflow API
// @version         1.0
// @description     Task lifecycle, access resolution and delegation for restaurant chains.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	actorRepo := repository.NewActorRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	accessRepo := repository.NewAccessRepository(db)
	targetRepo := repository.NewTargetRepository(db)
	delegationRepo := repository.NewDelegationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	actorService := service.NewActorService(actorRepo, txManager)
	accessService := service.NewAccessService(actorRepo, accessRepo, targetRepo, auditRepo, txManager)
	targetService := service.NewTargetService(targetRepo, auditRepo, txManager)
	delegationService := service.NewDelegationService(delegationRepo, taskRepo, targetRepo, actorRepo, auditRepo, txManager, targetService)
	taskService := service.NewTaskServiceWithHub(taskRepo, actorRepo, targetRepo, auditRepo, txManager, accessService, delegationService, wsHub)
	statsService := service.NewStatsService(taskRepo)
	auditService := service.NewAuditService(auditRepo)

	// Seed the SYSTEM actor so maintenance flows always have a superuser.
	if _, err := actorService.EnsureSystemActor(context.Background()); err != nil {
		log.Fatalf("Failed to seed system actor: %v", err)
	}

	// Initialize Handlers
	actorHandler := handler.NewActorHandler(actorService)
	taskHandler := handler.NewTaskHandler(taskService)
	targetHandler := handler.NewTargetHandler(targetService)
	accessHandler := handler.NewAccessHandler(accessService)
	delegationHandler := handler.NewDelegationHandler(delegationService)
	statsHandler := handler.NewStatsHandler(statsService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	actorHandler.RegisterRoutes(router.Group(""))
	taskHandler.RegisterRoutes(router.Group(""))
	targetHandler.RegisterRoutes(router.Group(""))
	accessHandler.RegisterRoutes(router.Group(""))
	delegationHandler.RegisterRoutes(router.Group(""))
	statsHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
