package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spst-logistics/spst-api/docs"
	"github.com/spst-logistics/spst-api/internal/auth"
	"github.com/spst-logistics/spst-api/internal/config"
	"github.com/spst-logistics/spst-api/internal/database"
	"github.com/spst-logistics/spst-api/internal/http/handler"
	"github.com/spst-logistics/spst-api/internal/http/middleware"
	"github.com/spst-logistics/spst-api/internal/http/router"
	"github.com/spst-logistics/spst-api/internal/jobs"
	"github.com/spst-logistics/spst-api/internal/logger"
	"github.com/spst-logistics/spst-api/internal/mail"
	"github.com/spst-logistics/spst-api/internal/repository"
	"github.com/spst-logistics/spst-api/internal/service"
	"github.com/spst-logistics/spst-api/internal/storage"
	"github.com/spst-logistics/spst-api/internal/trackingfeed"
)

// jobTimeout bounds every scheduled background run
const jobTimeout = 10 * time.Minute

// @title SPST Logistics API
// @version 1.0
// @description Back-office API for shipments, quotes, pallet waves and carrier coordination

// @contact.name SPST Operations
// @contact.email ops@spst.it

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "api-staging.spst.it"
	case "production":
		docs.SwaggerInfo.Host = "api.spst.it"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Carrier tracking feed is optional and read-only; the app runs without it
	var feedClient *trackingfeed.Client
	if cfg.TrackingFeed.Enabled {
		feedClient, err = trackingfeed.NewClient(&cfg.TrackingFeed, log)
		if err != nil {
			log.Warn("Tracking feed connection failed, continuing without it",
				zap.Error(err),
			)
		}
	} else {
		log.Info("Tracking feed not configured, skipping")
	}

	// Repositories
	shipmentRepo := repository.NewShipmentRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	waveRepo := repository.NewWaveRepository(db)
	carrierRepo := repository.NewCarrierRepository(db)
	userRepo := repository.NewUserRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	notificationLogRepo := repository.NewNotificationLogRepository(db)

	// Outbound mail
	var mailer mail.Mailer
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(&cfg.Mail, log)
	} else {
		log.Info("Mail disabled, notifications will only be logged")
		mailer = mail.NopMailer{}
	}

	// Services
	sequenceService := service.NewSequenceService(sequenceRepo, log)
	notifierService := service.NewNotifierService(mailer, userRepo, notificationLogRepo, cfg.Mail.FallbackRecipients, log)
	shipmentService := service.NewShipmentService(db, shipmentRepo, sequenceService, log)
	quoteService := service.NewQuoteService(db, quoteRepo, sequenceService, log)
	waveService := service.NewWaveService(db, waveRepo, shipmentRepo, carrierRepo, sequenceService, notifierService, log)
	carrierService := service.NewCarrierService(carrierRepo, log)
	manifestService := service.NewManifestService(waveRepo, log)
	paymentService := service.NewPaymentService(shipmentService, cfg.Payments.WebhookSecret.Value, log)
	trackingSyncService := service.NewTrackingSyncService(feedClient, shipmentRepo, log)

	// Authentication and authorization
	authMiddleware := auth.NewMiddleware(cfg, log)
	access := auth.NewAccess(userRepo, cfg.Auth.BreakGlassEmails, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Handlers
	shipmentHandler := handler.NewShipmentHandler(shipmentService, access, fileStorage, log)
	quoteHandler := handler.NewQuoteHandler(quoteService, access, log)
	waveHandler := handler.NewWaveHandler(waveService, manifestService, access, log)
	carrierHandler := handler.NewCarrierHandler(carrierService, access, log)
	paymentHandler := handler.NewPaymentHandler(paymentService, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		shipmentHandler,
		quoteHandler,
		waveHandler,
		carrierHandler,
		paymentHandler,
	)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)

		if feedClient.IsEnabled() {
			if err := jobs.RegisterTrackingSyncJob(scheduler, trackingSyncService, log, cfg.Jobs.TrackingSyncSchedule, jobTimeout); err != nil {
				log.Error("Failed to register tracking sync job", zap.Error(err))
			}
		}
		if err := jobs.RegisterPickupReminderJob(scheduler, waveService, log, cfg.Jobs.PickupReminderSchedule, jobTimeout); err != nil {
			log.Error("Failed to register pickup reminder job", zap.Error(err))
		}

		scheduler.Start()
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if err := feedClient.Close(); err != nil {
			log.Warn("Error closing tracking feed connection", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
