package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-portal-api/api/swagger"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/cache"
	"github.com/noah-isme/campus-portal-api/pkg/config"
	"github.com/noah-isme/campus-portal-api/pkg/database"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
	"github.com/noah-isme/campus-portal-api/pkg/logger"
	"github.com/noah-isme/campus-portal-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-portal-api/pkg/scheduler"
	"github.com/noah-isme/campus-portal-api/pkg/storage"
)

// @title Campus Portal API
// @version 1.0.0
// @description University academic portal: students, courses, enrollments, timetables, events, notifications, inscriptions and payments
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TimetableTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	validate := service.NewValidator()

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewClassSessionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	inscriptionRepo := repository.NewInscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	sender, err := mail.NewSender(cfg.Mail, logr)
	if err != nil {
		logr.Fatal("failed to configure mail sender", zap.Error(err))
	}
	queue := jobs.NewQueue("notifications", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	queue.Register(service.JobTypeNotificationEmail, service.NewEmailJobHandler(sender, metricsSvc))
	queue.Start(ctx)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	auditSvc := service.NewAuditService(auditRepo, logr)
	authSvc := service.NewAuthService(userRepo, tokenRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, auditSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, queue, metricsSvc, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, studentRepo, notificationSvc, cacheSvc, validate, logr)
	timetableSvc := service.NewTimetableService(sessionRepo, courseRepo, enrollmentRepo, studentRepo, cacheSvc, cfg.Cache.TimetableTTL, validate, logr)
	exportSvc := service.NewExportService(timetableSvc, exportStore, signer, metricsSvc, strings.TrimRight(cfg.APIPrefix, "/")+"/exports", logr)
	eventSvc := service.NewEventService(eventRepo, courseRepo, cacheSvc, validate, logr)
	inscriptionSvc := service.NewInscriptionService(inscriptionRepo, courseRepo, studentRepo, enrollmentSvc, notificationSvc, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, notificationSvc, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students:      studentRepo,
		Timetable:     timetableSvc,
		Enrollments:   enrollmentRepo,
		Events:        eventSvc,
		Notifications: notificationSvc,
		Payments:      paymentRepo,
		StudentCount:  studentRepo,
		Instructors:   instructorRepo,
		Courses:       courseRepo,
		Inscriptions:  inscriptionRepo,
		PaymentCount:  paymentRepo,
		Cache:         cacheSvc,
		Logger:        logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:             cfg.Cache.DashboardTTL,
			UpcomingEventsLimit:  cfg.Dashboard.UpcomingEventsLimit,
			NotificationsPreview: cfg.Dashboard.NotificationsPreview,
		},
	})

	var cronRunner *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		cronRunner = scheduler.New(logr, 5*time.Minute)
		maintenance := service.NewMaintenanceService(paymentSvc, exportStore, tokenRepo, metricsSvc, logr)
		if err := maintenance.Register(cronRunner, service.MaintenanceSchedule{
			OverduePayments: cfg.Scheduler.OverduePaymentSpec,
			ExportCleanup:   cfg.Scheduler.ExportCleanupSpec,
			TokenCleanup:    cfg.Scheduler.TokenCleanupSpec,
			ExportRetention: cfg.Exports.Retention,
		}); err != nil {
			logr.Fatal("failed to register maintenance tasks", zap.Error(err))
		}
		cronRunner.Start()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	ops := handler.NewMetricsHandler(metricsSvc.Handler(), db)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth: handler.NewAuthHandler(authSvc, handler.AuthCookie{
			Name:   cfg.JWT.CookieName,
			Domain: cfg.JWT.CookieDomain,
			Secure: cfg.JWT.CookieSecure,
		}),
		Users:         handler.NewUserHandler(userSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Instructors:   handler.NewInstructorHandler(instructorSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		Timetable:     handler.NewTimetableHandler(timetableSvc, exportSvc),
		Events:        handler.NewEventHandler(eventSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Inscriptions:  handler.NewInscriptionHandler(inscriptionSvc),
		Payments:      handler.NewPaymentHandler(paymentSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
	}, handler.RouteMiddleware{
		Authenticate: internalmiddleware.JWT(authSvc, cfg.JWT.CookieName),
		Audit: func(action, resource string) gin.HandlerFunc {
			return internalmiddleware.Audit(auditSvc, action, resource)
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if cronRunner != nil {
		cronRunner.Stop()
	}
	queue.Stop()
}
