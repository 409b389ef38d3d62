package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "billbook/api/swagger" // swagger docs
	"billbook/internal/cache"
	"billbook/internal/config"
	"billbook/internal/database"
	"billbook/internal/events"
	"billbook/internal/handler"
	"billbook/internal/metrics"
	"billbook/internal/middleware"
	"billbook/internal/repository"
	"billbook/internal/service"
	"billbook/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Billbook API
// @version         1.0
// @description     GST invoicing, orders, purchase bills, inventory and khata ledger for small businesses.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Database.DSN(), cfg.App.Env == "development")
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	publishers := []events.Publisher{wsHub}
	if kafka, ok := events.FromConfig(cfg.Kafka); ok {
		publishers = append(publishers, kafka)
		defer kafka.Close()
	}
	dispatcher := events.NewDispatcher(publishers...)
	balanceCache := cache.NewBalanceCache(cfg.Redis)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	partyRepo := repository.NewPartyRepository(db)
	itemRepo := repository.NewItemRepository(db)
	taxRuleRepo := repository.NewTaxRuleRepository(db)
	khataRepo := repository.NewKhataRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	billRepo := repository.NewPurchaseBillRepository(db)
	reportRepo := repository.NewReportRepository(db)

	jwtManager := middleware.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	taxService := service.NewTaxService(taxRuleRepo, auditRepo, txManager, cfg.Billing.DefaultTaxRate)
	partyService := service.NewPartyService(partyRepo, auditRepo, txManager)
	itemService := service.NewItemService(itemRepo, taxService, auditRepo, txManager, dispatcher)
	khataService := service.NewKhataService(khataRepo, partyRepo, auditRepo, txManager, balanceCache, dispatcher)
	deps := service.DocumentDeps{
		TxManager:  txManager,
		Parties:    partyRepo,
		Items:      itemRepo,
		Payments:   paymentRepo,
		Audit:      auditRepo,
		Rates:      taxService,
		Stock:      itemService,
		Ledger:     khataService,
		Dispatcher: dispatcher,
		Tolerance:  cfg.Billing.TotalsTolerance,
	}
	invoiceService := service.NewInvoiceService(invoiceRepo, orderRepo, deps, cfg.Billing.InvoicePrefix)
	orderService := service.NewOrderService(orderRepo, invoiceService, deps, cfg.Billing.OrderPrefix)
	billService := service.NewPurchaseBillService(billRepo, deps, cfg.Billing.PurchaseBillPrefix)
	totalsService := service.NewTotalsService(itemRepo, taxService, cfg.Billing.TotalsTolerance)
	userService := service.NewUserService(userRepo, auditRepo, txManager, jwtManager)
	auditService := service.NewAuditService(auditRepo)
	reportService := service.NewReportService(reportRepo)

	if err := userService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Printf("WARNING: failed to seed the admin account: %v", err)
	}

	healthChecks := map[string]handler.Pinger{"database": database.Health{DB: db}}
	if redisCache, ok := balanceCache.(*cache.RedisBalanceCache); ok {
		healthChecks["redis"] = redisCache
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimiter.Cleanup()
			}
		}
	}()

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", metrics.Handler())
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtManager.Authenticate)
	})
	handler.NewHealthHandler(healthChecks).RegisterRoutes(router.Group(""))

	api := router.Group("", rateLimiter.Middleware())
	handler.NewUserHandler(userService, cfg.JWT.Expiry).RegisterRoutes(api, jwtManager)
	handler.NewTotalsHandler(totalsService).RegisterRoutes(api, jwtManager)
	handler.NewInvoiceHandler(invoiceService).RegisterRoutes(api, jwtManager)
	handler.NewOrderHandler(orderService).RegisterRoutes(api, jwtManager)
	handler.NewPurchaseBillHandler(billService).RegisterRoutes(api, jwtManager)
	handler.NewPartyHandler(partyService).RegisterRoutes(api, jwtManager)
	handler.NewItemHandler(itemService).RegisterRoutes(api, jwtManager)
	handler.NewKhataHandler(khataService).RegisterRoutes(api, jwtManager)
	handler.NewTaxHandler(taxService).RegisterRoutes(api, jwtManager)
	handler.NewReportHandler(reportService).RegisterRoutes(api, jwtManager)
	handler.NewAuditHandler(auditService).RegisterRoutes(api, jwtManager)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
