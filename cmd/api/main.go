package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "shopdesk/api/swagger" // swagger docs
	"shopdesk/internal/config"
	"shopdesk/internal/database"
	"shopdesk/internal/handler"
	"shopdesk/internal/logger"
	"shopdesk/internal/middleware"
	"shopdesk/internal/receipt"
	"shopdesk/internal/repository"
	"shopdesk/internal/service"
	"shopdesk/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const tokenTTL = 7 * 24 * time.Hour

// @title           Shopdesk API
// @version         1.0
// @description     Point of sale backend: invoices, debts, stock, expenses and offline sale resynchronization.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadServer("configs/.env")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logger.Setup(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("logger setup failed")
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	secret := []byte(cfg.JWTSecret)
	guard := handler.Guard{Secret: secret}
	handler.RegisterValidators()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	authService := service.NewAuthService(userRepo, auditRepo, txManager, secret, tokenTTL)
	inventoryService := service.NewInventoryService(productRepo, auditRepo, txManager, wsHub)
	invoiceService := service.NewInvoiceService(invoiceRepo, productRepo, userRepo, auditRepo, txManager, wsHub)
	expenseService := service.NewExpenseService(expenseRepo, auditRepo, txManager)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statsRepo)

	var completer service.ChatCompleter
	if cfg.OpenAIKey != "" {
		completer = openai.NewClient(cfg.OpenAIKey)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, /api/chat will answer 503")
	}
	assistantService := service.NewAssistantService(completer, cfg.OpenAIModel, invoiceRepo, productRepo, expenseRepo, statisticsService)

	var sender service.ReceiptSender
	if cfg.SMTP.Host != "" {
		sender = receipt.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	}
	receiptService := service.NewReceiptService(invoiceService, sender, auditRepo)

	// Set up Gin Router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "x-auth-token"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	api := router.Group("")
	handler.NewUserHandler(authService, guard).RegisterRoutes(api)
	handler.NewInventoryHandler(inventoryService, guard).RegisterRoutes(api)
	handler.NewInvoiceHandler(invoiceService, guard).RegisterRoutes(api)
	handler.NewExpenseHandler(expenseService, guard).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, guard).RegisterRoutes(api)
	handler.NewStatisticsHandler(statisticsService, guard).RegisterRoutes(api)
	handler.NewAssistantHandler(assistantService, guard).RegisterRoutes(api)
	handler.NewReceiptHandler(receiptService, guard).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
