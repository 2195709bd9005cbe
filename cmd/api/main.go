package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kpi-engine-api/internal/config"
	"github.com/noah-isme/kpi-engine-api/internal/database"
	"github.com/noah-isme/kpi-engine-api/internal/handler"
	"github.com/noah-isme/kpi-engine-api/internal/middleware"
	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
	"github.com/noah-isme/kpi-engine-api/internal/router"
	"github.com/noah-isme/kpi-engine-api/internal/service"
	"github.com/noah-isme/kpi-engine-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.KPIRecord{},
		&models.TrainingAssignment{},
		&models.AuditSchedule{},
		&models.Notification{},
		&models.EmailDispatchLog{},
		&models.WorkRecord{},
		&models.NeighborCheck{},
		&models.AppSession{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	mailClient, err := mailer.New(mailer.Config{
		APIKey:    cfg.MailerAPIKey,
		BaseURL:   cfg.MailerBaseURL,
		FromEmail: cfg.MailerFromEmail,
		FromName:  cfg.MailerFromName,
		Timeout:   cfg.ExternalTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create mail client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	kpiRecordRepo := repository.NewKPIRecordRepository(db)
	trainingRepo := repository.NewTrainingRepository(db)
	auditRepo := repository.NewAuditScheduleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	activityLogRepo := repository.NewActivityLogRepository(db)

	identityService := service.NewIdentityService(userRepo, logger)
	aggregator := service.NewMetricsAggregator(userRepo, activityRepo, logger)
	notifierService := service.NewNotifierService(notificationRepo, redisClient, cfg.EventChannelBase, natsConn, logger)
	emailDispatcher := service.NewEmailDispatcher(emailLogRepo, mailClient, cfg.EmailMaxRetries, logger)
	orchestrator := service.NewOrchestrator(kpiRecordRepo, trainingRepo, auditRepo, identityService, emailDispatcher, notifierService, logger)
	pipeline := service.NewPipelineService(identityService, aggregator, kpiRecordRepo, orchestrator, cfg.BatchConcurrency, cfg.ExternalTimeout, logger)
	queryService := service.NewQueryService(kpiRecordRepo, trainingRepo, auditRepo, identityService, redisClient, cfg.HistoryCacheTTL, logger)
	activityRecorder := service.NewActivityRecorder(activityLogRepo, logger)
	importService, err := service.NewImportService(identityService, aggregator, pipeline, activityRecorder, logger)
	if err != nil {
		log.Fatalf("failed to create import service: %v", err)
	}
	scheduler := service.NewScheduler(pipeline, emailDispatcher, activityRepo, cfg, logger)

	kpiHandler := handler.NewKPIHandler(pipeline, queryService, activityRecorder, validate, logger)
	schedulerHandler := handler.NewSchedulerHandler(scheduler, logger)
	importHandler := handler.NewImportHandler(importService, logger)
	notificationHandler := handler.NewNotificationHandler(notifierService, logger, 30*time.Second)

	serviceCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	notifierService.Start(serviceCtx)
	scheduler.Start(serviceCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		KPIHandler:          kpiHandler,
		SchedulerHandler:    schedulerHandler,
		ImportHandler:       importHandler,
		NotificationHandler: notificationHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopServices)
}

func waitForShutdown(app *fiber.App, stopServices context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopServices()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
