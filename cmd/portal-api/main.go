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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-portal-api/api/swagger"
	"github.com/noah-isme/student-portal-api/internal/handler"
	"github.com/noah-isme/student-portal-api/internal/middleware"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/repository"
	"github.com/noah-isme/student-portal-api/internal/service"
	"github.com/noah-isme/student-portal-api/pkg/cache"
	"github.com/noah-isme/student-portal-api/pkg/config"
	"github.com/noah-isme/student-portal-api/pkg/database"
	"github.com/noah-isme/student-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/student-portal-api/pkg/storage"
)

// @title Student Portal API
// @version 1.0.0
// @description Student registration, profiles and the admin directory
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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.CourseCache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, course cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	resumes, err := storage.NewLocalStorage(cfg.Uploads.ResumeDir)
	if err != nil {
		logr.Fatal("failed to prepare resume storage", zap.Error(err))
	}
	photos, err := storage.NewLocalStorage(cfg.Uploads.PhotoDir)
	if err != nil {
		logr.Fatal("failed to prepare photo storage", zap.Error(err))
	}
	logr.Info("upload storage ready", zap.String("resumes", resumes.Path("")), zap.String("photos", photos.Path("")))

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	signer := storage.NewSignedURLSigner(cfg.Downloads.SignedURLSecret, cfg.Downloads.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.CourseCache.TTL, logr, redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, cfg.CourseCache.TTL, validate, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, courseSvc, validate, logr, metricsSvc, service.RegistrationConfig{
		AllowedEmailDomains: cfg.Registration.AllowedEmailDomains,
	})
	profileSvc := service.NewProfileService(studentRepo, courseSvc, resumes, photos, validate, logr, metricsSvc, service.ProfileConfig{
		MaxFileSize: cfg.Uploads.MaxFileSizeBytes,
		LegacyNames: cfg.Uploads.LegacyNames,
	})
	directorySvc := service.NewDirectoryService(studentRepo, profileSvc, signer, logr, metricsSvc, service.DirectoryConfig{
		APIPrefix: cfg.APIPrefix,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	profileHandler := handler.NewProfileHandler(profileSvc, cfg.Uploads.MaxFileSizeBytes)
	directoryHandler := handler.NewDirectoryHandler(directorySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", registrationHandler.Submit)
	api.GET("/courses", courseHandler.List)
	api.GET("/files/:token", directoryHandler.DownloadSigned)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	me := secured.Group("/me")
	me.GET("/profile", profileHandler.GetOwn)
	me.PUT("/profile", profileHandler.UpsertOwn)
	me.GET("/profile/resume", profileHandler.DownloadOwnResume)
	me.GET("/profile/photo", profileHandler.DownloadOwnPhoto)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/registrations", registrationHandler.List)
	admin.POST("/registrations/:id/approve", registrationHandler.Approve)
	admin.DELETE("/registrations/:id", registrationHandler.Reject)
	admin.POST("/courses", courseHandler.Add)
	admin.DELETE("/courses/:name", courseHandler.Remove)
	admin.GET("/students", directoryHandler.Search)
	admin.GET("/students/export/resumes", directoryHandler.ExportResumes)
	admin.GET("/students/export/roster", directoryHandler.ExportRoster)
	admin.GET("/students/:id", directoryHandler.Get)
	admin.DELETE("/students/:id", profileHandler.DeleteStudent)
	admin.PUT("/students/:id/profile", profileHandler.UpsertStudent)
	admin.GET("/students/:id/files/:kind", profileHandler.DownloadStudentFile)
	admin.GET("/students/:id/files/:kind/url", directoryHandler.FileURL)

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
