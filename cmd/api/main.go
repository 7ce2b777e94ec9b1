package main

import (
	_ "accessportal/api/swagger" // swagger docs
	"accessportal/internal/database"
	"accessportal/internal/handler"
	"accessportal/internal/middleware"
	"accessportal/internal/repository"
	"accessportal/internal/service"
	"accessportal/internal/websocket"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Data Access Portal API
// @version         1.0
// @description     Review workflow for data access applications: submissions, revision cycles, signatures and the action ledger.
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

	grantTTLDays := 365
	if v := os.Getenv("ACCESS_GRANT_TTL_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			grantTTLDays = parsed
		} else {
			log.Println("WARNING: invalid ACCESS_GRANT_TTL_DAYS, using default 365")
		}
	}
	grantTTL := time.Duration(grantTTLDays) * 24 * time.Hour

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	signatureRepo := repository.NewSignatureRepository(db)

	userService := service.NewUserService(userRepo)
	applicationService := service.NewApplicationService(applicationRepo, revisionRepo, ledgerRepo, signatureRepo, txManager, wsHub, grantTTL)
	revisionService := service.NewRevisionService(applicationRepo, revisionRepo, txManager)
	signatureService := service.NewSignatureService(applicationRepo, revisionRepo, signatureRepo, txManager)
	ledgerService := service.NewLedgerService(applicationRepo, ledgerRepo)
	reportService := service.NewReportService(db)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	applicationHandler := handler.NewApplicationHandler(applicationService)
	revisionHandler := handler.NewRevisionHandler(revisionService)
	signatureHandler := handler.NewSignatureHandler(signatureService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	reportHandler := handler.NewReportHandler(reportService)

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
	userHandler.RegisterRoutes(router.Group(""))
	applicationHandler.RegisterRoutes(router.Group(""))
	revisionHandler.RegisterRoutes(router.Group(""))
	signatureHandler.RegisterRoutes(router.Group(""))
	ledgerHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
