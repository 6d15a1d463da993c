package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-aris-api/api/swagger"
	"github.com/noah-isme/sma-aris-api/internal/handler"
	"github.com/noah-isme/sma-aris-api/internal/middleware"
	"github.com/noah-isme/sma-aris-api/internal/models"
	"github.com/noah-isme/sma-aris-api/internal/repository"
	"github.com/noah-isme/sma-aris-api/internal/service"
	"github.com/noah-isme/sma-aris-api/pkg/cache"
	"github.com/noah-isme/sma-aris-api/pkg/config"
	"github.com/noah-isme/sma-aris-api/pkg/database"
	"github.com/noah-isme/sma-aris-api/pkg/jobs"
	"github.com/noah-isme/sma-aris-api/pkg/logger"
	"github.com/noah-isme/sma-aris-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/sma-aris-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-aris-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-aris-api/pkg/storage"
)

// @title SMA ARIS API
// @version 1.0.0
// @description Academic risk and intervention service
// @BasePath /api/v1
// @schemes http
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	interventionRepo := repository.NewInterventionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "sma-aris-api",
	})

	var mail mailer.Mailer
	if cfg.Notifications.EmailEnabled {
		if cfg.Notifications.SendgridAPIKey != "" {
			mail = mailer.NewSendgridMailer(cfg.Notifications.SendgridAPIKey, cfg.Notifications.FromName, cfg.Notifications.FromAddress, logr)
		} else {
			mail = mailer.NewConsoleMailer(logr)
		}
	}

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, mail, metricsSvc, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	subjectSvc := service.NewSubjectService(subjectRepo, enrollmentRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, attendanceRepo, cacheSvc, metricsSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, gradeRepo, cacheSvc, validate, logr)
	interventionSvc := service.NewInterventionService(interventionRepo, enrollmentRepo, notificationSvc, cacheSvc, validate, logr)
	riskSvc := service.NewRiskService(enrollmentRepo, gradeRepo, attendanceRepo, interventionRepo, subjectRepo, cacheSvc, cfg.Risk.CacheTTL, logr)
	analyticsSvc := service.NewAnalyticsService(enrollmentRepo, gradeRepo, attendanceRepo, interventionRepo, subjectRepo, logr)
	dashboardSvc := service.NewDashboardService(enrollmentRepo, gradeRepo, attendanceRepo, interventionRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	var exportArchive *storage.Archive
	if cfg.Exports.ArchiveDir != "" {
		exportArchive, err = storage.NewArchive(cfg.Exports.ArchiveDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to open export archive", "error", err)
		}
		if deleted, err := exportArchive.CleanupOlderThan(cfg.Exports.ArchiveRetention); err != nil {
			logr.Sugar().Warnw("export archive cleanup failed", "error", err)
		} else if len(deleted) > 0 {
			logr.Sugar().Infow("pruned expired export archives", "count", len(deleted))
		}
	}
	exportSvc := service.NewExportService(enrollmentRepo, subjectRepo, riskSvc, exportArchive, cfg.Exports.Enabled, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	interventionHandler := handler.NewInterventionHandler(interventionSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	riskHandler := handler.NewRiskHandler(riskSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/risk/:enrollmentId", riskHandler.Report)

	teacher := authed.Group("")
	teacher.Use(middleware.RequireRoles(models.RoleTeacher))
	{
		teacher.GET("/subjects", subjectHandler.List)
		teacher.POST("/subjects", subjectHandler.Create)
		teacher.GET("/subjects/:id", subjectHandler.Get)
		teacher.PUT("/subjects/:id", subjectHandler.Update)
		teacher.DELETE("/subjects/:id", subjectHandler.Delete)
		teacher.POST("/subjects/:id/enrollments", subjectHandler.Enroll)
		teacher.GET("/subjects/:id/roster", subjectHandler.Roster)

		teacher.GET("/grades", gradeHandler.List)
		teacher.POST("/grades", gradeHandler.Record)
		teacher.POST("/grades/bulk", gradeHandler.BulkRecord)

		teacher.GET("/attendance", attendanceHandler.List)
		teacher.POST("/attendance", attendanceHandler.RecordSheet)

		teacher.POST("/interventions", interventionHandler.Create)
		teacher.GET("/interventions", interventionHandler.List)
		teacher.POST("/interventions/:id/tasks", interventionHandler.AddTask)
		teacher.POST("/interventions/:id/complete", interventionHandler.Complete)

		if cfg.Dashboard.Enabled {
			teacher.GET("/dashboard", dashboardHandler.Overview)
		}

		teacher.GET("/exports/risk.csv", exportHandler.RiskCSV)
		teacher.GET("/exports/subjects/:id/risk.pdf", exportHandler.SubjectRiskPDF)
	}

	student := authed.Group("")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/analytics", analyticsHandler.Index)
		student.GET("/analytics/:enrollmentId", analyticsHandler.Detail)
		student.GET("/risk", riskHandler.Overview)
		student.GET("/interventions/feed", interventionHandler.StudentFeed)
		student.POST("/tasks/:id/complete", interventionHandler.CompleteTask)

		student.GET("/notifications", notificationHandler.List)
		student.POST("/notifications/:id/read", notificationHandler.MarkRead)
		student.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
