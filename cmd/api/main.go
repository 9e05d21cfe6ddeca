package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "taxcore/api/swagger" // swagger docs
	"taxcore/internal/cit"
	"taxcore/internal/config"
	"taxcore/internal/database"
	"taxcore/internal/handler"
	"taxcore/internal/middleware"
	"taxcore/internal/pit"
	"taxcore/internal/repository"
	"taxcore/internal/rules"
	"taxcore/internal/service"
	"taxcore/internal/taxcode"
	"taxcore/internal/vat"
	"taxcore/internal/websocket"
	"taxcore/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Tax Compliance API
// @version         1.0
// @description     VAT deductibility, CIT add-backs, PIT and tax-code verification for Vietnamese bookkeeping.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	log.Info("Connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))

	// Tax sections are already validated by config.Load.
	vatCfg, _ := cfg.Tax.VAT()
	citCfg, _ := cfg.Tax.CIT()
	pitCfg, _ := cfg.Tax.PIT()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log.Named("ws"))
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Domain -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	ruleRepo := repository.NewTaxRuleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	invoiceRepo := repository.NewPurchaseInvoiceRepository(db)
	expenseRepo := repository.NewExpenseLineRepository(db)
	payrollRepo := repository.NewPayrollRepository(db)
	taxCodeRepo := repository.NewTaxCodeRepository(db)

	engine := rules.NewEngine(ruleRepo, log.Named("rules"))
	matcher := taxcode.NewMatcher(cfg.Registry.MatchThreshold)
	registry := taxcode.NewClient(
		taxcode.WithBaseURL(cfg.Registry.BaseURL),
		taxcode.WithTimeout(cfg.Registry.Timeout),
		taxcode.WithRateLimit(cfg.Registry.RatePerSecond, cfg.Registry.Burst),
		taxcode.WithLogger(log.Named("registry")),
	)
	taxCodes := taxcode.NewService(registry, taxCodeRepo, matcher, cfg.Registry.CacheMaxAge, log.Named("taxcode"))

	validator := vat.NewValidator(vatCfg, engine, taxCodes, matcher, log.Named("vat"))
	reporter := vat.NewReporter(validator, invoiceRepo, cfg.Tax.Workers, log.Named("vat"))
	citCalc := cit.NewCalculator(citCfg, engine, log.Named("cit"))
	pitCalc, err := pit.NewCalculator(pitCfg, engine, log.Named("pit"))
	if err != nil {
		log.Fatal("Invalid PIT configuration", zap.Error(err))
	}

	taxService := service.NewTaxService(ruleRepo, auditRepo, txManager, log)
	auditService := service.NewAuditService(auditRepo)
	complianceService := service.NewComplianceService(validator, reporter, citCalc, pitCalc, expenseRepo, payrollRepo, wsHub, log)
	taxCodeService := service.NewTaxCodeService(taxCodes, auditRepo, log)

	// Initialize Handlers
	auth := middleware.NewAuth(cfg.Auth.JWTSecret)
	taxHandler := handler.NewTaxHandler(taxService)
	complianceHandler := handler.NewComplianceHandler(complianceService)
	taxCodeHandler := handler.NewTaxCodeHandler(taxCodeService)
	auditHandler := handler.NewAuditHandler(auditService)

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status, code := "OK", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "DEGRADED", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"ws_clients": wsHub.ClientCount(),
			"time":       time.Now().Format(time.RFC3339),
		})
	})

	// WebSocket endpoint
	router.GET("/ws", websocket.ServeWs(wsHub, auth, middleware.RoleAdmin, middleware.RoleAccountant))

	// API Routing
	taxHandler.RegisterRoutes(router.Group(""), auth)
	complianceHandler.RegisterRoutes(router.Group(""), auth)
	taxCodeHandler.RegisterRoutes(router.Group(""), auth)
	auditHandler.RegisterRoutes(router.Group(""), auth)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
