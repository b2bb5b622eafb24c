package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/medlearn/lms-api/api/swagger"
	"github.com/medlearn/lms-api/internal/handler"
	"github.com/medlearn/lms-api/internal/middleware"
	"github.com/medlearn/lms-api/internal/models"
	"github.com/medlearn/lms-api/internal/repository"
	"github.com/medlearn/lms-api/internal/service"
	"github.com/medlearn/lms-api/pkg/cache"
	"github.com/medlearn/lms-api/pkg/config"
	"github.com/medlearn/lms-api/pkg/database"
	"github.com/medlearn/lms-api/pkg/logger"
	corsmiddleware "github.com/medlearn/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/medlearn/lms-api/pkg/middleware/requestid"
	"github.com/medlearn/lms-api/pkg/storage"
)

// @title MedLearn LMS API
// @version 1.0.0
// @description Learning content backend for medical colleges
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logr.Sugar().Fatalw("failed to init object storage", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	authRepo := repository.NewAuthRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Services.
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, authRepo, auditRepo, logr, cfg.JWT)
	userService := service.NewUserService(userRepo, departmentRepo, auditRepo, logr)
	departmentService := service.NewDepartmentService(departmentRepo, courseRepo, logr)
	courseService := service.NewCourseService(courseRepo, departmentRepo, logr)
	subjectService := service.NewSubjectService(subjectRepo, noteRepo, videoRepo, cacheRepo, metricsService, logr, cfg.Cache)
	contentService := service.NewContentService(noteRepo, videoRepo, subjectRepo, objectStore, auditRepo, cacheRepo, logr, cfg.Content)

	var reportService *service.ReportService
	if cfg.Reports.Enabled {
		reportFiles, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportService = service.NewReportService(reportRepo, noteRepo, videoRepo, departmentRepo, reportFiles, signer, logr, cfg.Reports, cfg.APIPrefix)
		reportService.Start(ctx)
		defer reportService.Stop()
	}

	// Handlers.
	metricsHandler := handler.NewMetricsHandler(metricsService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	departmentHandler := handler.NewDepartmentHandler(departmentService)
	courseHandler := handler.NewCourseHandler(courseService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	contentHandler := handler.NewContentHandler(contentService, metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/auth/me", authHandler.Me)

		managers := authed.Group("")
		managers.Use(middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal))
		{
			managers.POST("/users", userHandler.Create)
			managers.GET("/users", userHandler.List)
			managers.PUT("/users/:id", userHandler.Update)
			managers.DELETE("/users/:id", userHandler.Deactivate)
			managers.GET("/roles", userHandler.Roles)
			managers.POST("/departments", departmentHandler.Create)
			managers.PUT("/departments/:id", departmentHandler.Update)
		}
		authed.GET("/users/:id", userHandler.Get)

		authed.GET("/departments", departmentHandler.List)
		authed.GET("/departments/:id", departmentHandler.Get)
		authed.GET("/departments/:id/courses", departmentHandler.Courses)

		catalog := authed.Group("")
		catalog.Use(middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleHOD))
		{
			catalog.POST("/courses", courseHandler.Create)
			catalog.PUT("/courses/:id", courseHandler.Update)
			catalog.POST("/subjects", subjectHandler.Create)
			catalog.PUT("/subjects/:id", subjectHandler.Update)
		}
		authed.GET("/courses", courseHandler.List)
		authed.GET("/courses/:id", courseHandler.Get)
		authed.GET("/courses/:id/subjects", subjectHandler.ListByCourse)

		authed.GET("/subjects", subjectHandler.List)
		authed.GET("/subjects/:id", subjectHandler.Get)

		staff := authed.Group("")
		staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleHOD, models.RoleFaculty))
		{
			staff.POST("/subjects/:id/notes/upload-url", contentHandler.NoteUploadURL)
			staff.POST("/subjects/:id/notes/confirm-upload", contentHandler.ConfirmNote)
			staff.POST("/subjects/:id/videos/upload-url", contentHandler.VideoUploadURL)
			staff.POST("/subjects/:id/videos/confirm-upload", contentHandler.ConfirmVideo)
			staff.DELETE("/notes/:id", contentHandler.DeleteNote)
			staff.DELETE("/videos/:id", contentHandler.DeleteVideo)
		}
		authed.GET("/subjects/:id/notes", contentHandler.ListNotes)
		authed.GET("/subjects/:id/videos", contentHandler.ListVideos)
		authed.GET("/notes/:id/download", contentHandler.DownloadNote)
		authed.GET("/videos/:id/stream", contentHandler.StreamVideo)
	}

	if reportService != nil {
		reportHandler := handler.NewReportHandler(reportService)
		api.GET("/export/:token", reportHandler.Export)

		reports := authed.Group("")
		reports.Use(middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleHOD))
		{
			reports.POST("/reports/content-summary", reportHandler.Request)
			reports.GET("/reports", reportHandler.List)
			reports.GET("/reports/:id", reportHandler.Get)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
