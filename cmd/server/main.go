package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	appbilling "github.com/schoolpay/backend/internal/application/billing"
	"github.com/schoolpay/backend/internal/infrastructure/config"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"github.com/schoolpay/backend/internal/infrastructure/persistence"
	"github.com/schoolpay/backend/internal/interfaces/http/handler"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
	"github.com/schoolpay/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting SchoolPay Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	gormLogLevel := gormlogger.Warn
	if cfg.Log.Level == "debug" {
		gormLogLevel = gormlogger.Info
	}
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	creditRepo := persistence.NewGormCreditRepository(db.DB)
	studentRepo := persistence.NewGormStudentRepository(db.DB)
	enrollmentRepo := persistence.NewGormEnrollmentRepository(db.DB)
	feeRepo := persistence.NewGormFeeRepository(db.DB)
	snapshotLoader := persistence.NewGormSnapshotLoader(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Initialize application services
	billingService := appbilling.NewBillingService(invoiceRepo, studentRepo, enrollmentRepo, feeRepo, log)
	paymentService := appbilling.NewPaymentService(receiptRepo, invoiceRepo, creditRepo, studentRepo, uow, log)
	ledgerService := appbilling.NewLedgerService(snapshotLoader)
	reportService := appbilling.NewReportService(snapshotLoader, log)
	auditService := appbilling.NewAuditService(snapshotLoader, invoiceRepo, receiptRepo, creditRepo, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewInvoiceHandler(billingService)).
		Register(handler.NewPaymentHandler(paymentService)).
		Register(handler.NewLedgerHandler(ledgerService)).
		Register(handler.NewReportHandler(reportService)).
		Register(handler.NewAuditHandler(auditService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
