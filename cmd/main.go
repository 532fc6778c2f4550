package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"contract-service/internal/cache"
	"contract-service/internal/config"
	"contract-service/internal/dispatch"
	"contract-service/internal/events"
	"contract-service/internal/handlers"
	"contract-service/internal/middleware"
	"contract-service/internal/models"
	"contract-service/internal/nats"
	"contract-service/internal/repository"
	"contract-service/internal/services"
	"contract-service/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := initLogger(cfg)

	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// Auto-migrate database schema
	if err := migrateDatabase(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info("Database migration completed successfully")

	// Initialize Redis for the unread-count cache (optional)
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis, unread counts will be uncached")
			redisClient = nil
		} else {
			logger.Info("Redis connected")
		}
		cancel()
	}
	notifCache := cache.NewNotificationCache(redisClient, logger)

	// Initialize NATS (optional - events are best-effort)
	var natsClient *nats.Client
	if cfg.NATS.URL != "" {
		natsClient, err = nats.NewClient(cfg.NATS.URL, cfg.NATS.MaxReconnects, cfg.NATS.ReconnectWait)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to NATS, event publishing disabled")
			natsClient = nil
		} else {
			logger.Info("NATS connected")
		}
	}
	publisher := events.NewPublisher(natsClient, logger)

	// Initialize the contract document blob store (optional)
	var documents storage.DocumentStore
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Store(&storage.S3Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.Storage.Endpoint,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize document store, uploads disabled")
		} else {
			documents = s3Store
			logger.WithField("bucket", cfg.Storage.Bucket).Info("Document store initialized")
		}
	}

	// Initialize repositories
	contractRepo := repository.NewContractRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	lookupRepo := repository.NewLookupRepository(db)
	notifRepo := repository.NewNotificationRepository(db, notifCache)

	// Initialize services
	emailProvider := initEmailProvider(cfg, logger)
	inAppProvider := services.NewInAppProvider(notifRepo)
	renderer := services.NewReminderEmailRenderer(cfg.App.BaseURL)
	resolver := services.NewRecipientResolver(userRepo, logger)

	contractService := services.NewContractService(contractRepo, userRepo, inAppProvider, documents, publisher, renderer, logger)
	reminderService := services.NewReminderService(reminderRepo, contractRepo, publisher, logger)

	// Initialize dispatch
	dispatcher := dispatch.NewDispatcher(
		reminderRepo,
		contractRepo,
		resolver,
		emailProvider,
		inAppProvider,
		renderer,
		publisher,
		dispatch.Config{
			MaxAttempts:     cfg.Dispatch.MaxAttempts,
			RetryBackoff:    cfg.Dispatch.RetryBackoff,
			DeliveryTimeout: cfg.Dispatch.DeliveryTimeout,
		},
		logger,
	)
	sweeper := dispatch.NewSweeper(reminderRepo, dispatcher, cfg.Dispatch.WorkerConcurrency, cfg.Dispatch.BatchLimit, logger)

	// Schedule the reminder sweep
	var scheduler *cron.Cron
	if cfg.Dispatch.SweepSchedule != "" {
		scheduler = cron.New(cron.WithSeconds())
		_, err := scheduler.AddFunc(cfg.Dispatch.SweepSchedule, func() {
			if _, err := sweeper.Run(context.Background()); err != nil {
				logger.WithError(err).Error("Scheduled reminder sweep failed")
			}
		})
		if err != nil {
			logger.Fatalf("Invalid sweep schedule %q: %v", cfg.Dispatch.SweepSchedule, err)
		}
		scheduler.Start()
		logger.WithField("schedule", cfg.Dispatch.SweepSchedule).Info("Reminder sweep scheduled")
	} else {
		logger.Warn("Reminder sweep schedule disabled, use POST /api/v1/dispatch/run")
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	contractHandler := handlers.NewContractHandler(contractService, cfg.Storage.URLExpiry)
	reminderHandler := handlers.NewReminderHandler(reminderService)
	notifHandler := handlers.NewNotificationHandler(notifRepo)
	companyHandler := handlers.NewCompanyHandler(companyRepo, lookupRepo, userRepo)
	dispatchHandler := handlers.NewDispatchHandler(sweeper)

	// Setup router
	router := setupRouter(cfg, logger, healthHandler, contractHandler, reminderHandler, notifHandler, companyHandler, dispatchHandler)

	// Start server with graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting Contract Service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down Contract Service...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if natsClient != nil {
		natsClient.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Contract Service stopped")
}

// initLogger configures the process logger
func initLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.App.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// initDatabase initializes the database connection
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{}
	if cfg.App.Environment == "production" {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	} else {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}

// migrateDatabase runs database migrations
func migrateDatabase(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.Company{},
		&models.ContractType{},
		&models.Contact{},
		&models.User{},
		&models.Contract{},
		&models.Reminder{},
		&models.ReminderRecipient{},
		&models.Notification{},
	}

	for _, model := range modelsToMigrate {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}

// initEmailProvider builds the email failover chain.
// Priority: AWS SES (primary) -> SendGrid (secondary) -> SMTP (fallback)
func initEmailProvider(cfg *config.Config, logger *logrus.Logger) services.Provider {
	var providers []services.Provider

	if cfg.Email.SESFrom != "" && (cfg.AWS.AccessKeyID != "" || cfg.AWS.Region != "") {
		sesProvider, err := services.NewSESProvider(&services.ProviderConfig{
			AWSRegion:          cfg.AWS.Region,
			AWSAccessKeyID:     cfg.AWS.AccessKeyID,
			AWSSecretAccessKey: cfg.AWS.SecretAccessKey,
			SESFrom:            cfg.Email.SESFrom,
			SESFromName:        cfg.Email.SESFromName,
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize AWS SES")
		} else {
			providers = append(providers, sesProvider)
			logger.WithField("region", cfg.AWS.Region).Info("Email provider configured: AWS SES (primary)")
		}
	}

	if cfg.Email.SendGridAPIKey != "" {
		providers = append(providers, services.NewSendGridProvider(&services.ProviderConfig{
			SendGridAPIKey: cfg.Email.SendGridAPIKey,
			SendGridFrom:   cfg.Email.SendGridFrom,
		}))
		logger.Info("Email provider configured: SendGrid (secondary)")
	}

	if cfg.Email.SMTPHost != "" {
		providers = append(providers, services.NewSMTPProvider(&services.ProviderConfig{
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUsername: cfg.Email.SMTPUsername,
			SMTPPassword: cfg.Email.SMTPPassword,
			SMTPFrom:     cfg.Email.SMTPFrom,
		}))
		logger.WithField("host", cfg.Email.SMTPHost).Info("Email provider configured: SMTP (fallback)")
	}

	if len(providers) == 0 {
		logger.Warn("No email provider configured, email reminders will fail")
		return nil
	}
	if len(providers) == 1 {
		return providers[0]
	}

	failover := services.NewFailoverEmailProvider(providers, &services.FailoverConfig{
		EnableFailover: cfg.Email.EnableFailover,
		RetryDelay:     2 * time.Second,
	}, logger)
	logger.Infof("Email failover chain initialized: %s", failover.GetName())
	return failover
}

// setupRouter wires the HTTP routes
func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	healthHandler *handlers.HealthHandler,
	contractHandler *handlers.ContractHandler,
	reminderHandler *handlers.ReminderHandler,
	notifHandler *handlers.NotificationHandler,
	companyHandler *handlers.CompanyHandler,
	dispatchHandler *handlers.DispatchHandler,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	router.GET("/health", healthHandler.Health)
	router.GET("/health/livez", healthHandler.Livez)
	router.GET("/health/readyz", healthHandler.Readyz)

	allowHeaderAuth := cfg.App.Environment != "production"
	api := router.Group("/api/v1")
	api.Use(middleware.TenantAuth(cfg.Auth.JWTSecret, allowHeaderAuth, logger))
	{
		contracts := api.Group("/contracts")
		{
			contracts.POST("", contractHandler.Create)
			contracts.GET("", contractHandler.List)
			contracts.GET("/:id", contractHandler.Get)
			contracts.PUT("/:id", contractHandler.Update)
			contracts.DELETE("/:id", contractHandler.Delete)
			contracts.POST("/:id/terminate", contractHandler.Terminate)
			contracts.POST("/:id/document", contractHandler.AttachDocument)
			contracts.DELETE("/:id/document", contractHandler.DetachDocument)
			contracts.GET("/:id/document/url", contractHandler.DocumentURL)
		}

		reminders := api.Group("/reminders")
		{
			reminders.POST("", reminderHandler.Create)
			reminders.GET("", reminderHandler.List)
			reminders.GET("/:id", reminderHandler.Get)
			reminders.PUT("/:id", reminderHandler.Update)
			reminders.DELETE("/:id", reminderHandler.Delete)
			reminders.POST("/:id/handled", reminderHandler.MarkHandled)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notifHandler.List)
			notifications.GET("/unread-count", notifHandler.UnreadCount)
			notifications.POST("/:id/read", notifHandler.MarkRead)
			notifications.POST("/read-all", notifHandler.MarkAllRead)
		}

		companies := api.Group("/companies")
		{
			companies.POST("", middleware.RequireSuperadmin(logger), companyHandler.CreateCompany)
			companies.GET("", middleware.RequireSuperadmin(logger), companyHandler.ListCompanies)
			companies.GET("/:id", companyHandler.GetCompany)
		}

		users := api.Group("/users")
		{
			users.POST("", companyHandler.CreateUser)
			users.GET("", companyHandler.ListUsers)
		}

		contractTypes := api.Group("/contract-types")
		{
			contractTypes.POST("", companyHandler.CreateContractType)
			contractTypes.GET("", companyHandler.ListContractTypes)
			contractTypes.DELETE("/:id", companyHandler.DeleteContractType)
		}

		contacts := api.Group("/contacts")
		{
			contacts.POST("", companyHandler.CreateContact)
			contacts.GET("", companyHandler.ListContacts)
			contacts.DELETE("/:id", companyHandler.DeleteContact)
		}

		api.POST("/dispatch/run", middleware.RequireSuperadmin(logger), dispatchHandler.Run)
	}

	return router
}
