package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/unireg-dev/unireg-api/api/swagger"
	"github.com/unireg-dev/unireg-api/internal/handler"
	"github.com/unireg-dev/unireg-api/internal/middleware"
	"github.com/unireg-dev/unireg-api/internal/models"
	"github.com/unireg-dev/unireg-api/internal/repository"
	"github.com/unireg-dev/unireg-api/internal/service"
	"github.com/unireg-dev/unireg-api/pkg/cache"
	"github.com/unireg-dev/unireg-api/pkg/config"
	"github.com/unireg-dev/unireg-api/pkg/database"
	"github.com/unireg-dev/unireg-api/pkg/logger"
	corsmiddleware "github.com/unireg-dev/unireg-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unireg-dev/unireg-api/pkg/middleware/requestid"
)

// @title UniReg API
// @version 1.0.0
// @description University course registration backend
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	termRepo := repository.NewTermRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	prereqRepo := repository.NewPrerequisiteRepository(db)
	limitRepo := repository.NewUnitLimitRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	termSvc := service.NewTermService(termRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, prereqRepo, limitRepo, cacheRepo, cfg.Catalog.CacheTTL, metricsSvc, validate, logr)
	selectionSvc := service.NewSelectionService(selectionRepo, courseRepo, prereqRepo, limitRepo, service.UnitPolicy{
		DefaultMinUnits: cfg.Selection.DefaultMinUnits,
		DefaultMaxUnits: cfg.Selection.DefaultMaxUnits,
	}, logr)
	gradeSvc := service.NewGradeService(gradeRepo, selectionRepo, courseRepo, termRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	termHandler := handler.NewTermHandler(termSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, models.UnitLimit{
		MinUnits: cfg.Selection.DefaultMinUnits,
		MaxUnits: cfg.Selection.DefaultMaxUnits,
	})
	selectionHandler := handler.NewSelectionHandler(selectionSvc, metricsSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)

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
		if err := db.Ping(); err != nil {
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
	authed.PUT("/auth/password", authHandler.ChangePassword)

	authed.GET("/terms", termHandler.List)
	authed.GET("/terms/active", termHandler.GetActive)
	authed.GET("/terms/:id", termHandler.Get)
	authed.POST("/terms", middleware.RequireRoles(models.RoleAdmin), termHandler.Create)
	authed.PUT("/terms/:id", middleware.RequireRoles(models.RoleAdmin), termHandler.Update)
	authed.PATCH("/terms/:id/activation", middleware.RequireRoles(models.RoleAdmin), termHandler.SetActive)
	authed.DELETE("/terms/:id", middleware.RequireRoles(models.RoleAdmin), termHandler.Delete)

	authed.GET("/courses", courseHandler.List)
	authed.GET("/courses/:id", courseHandler.Get)
	authed.POST("/courses", middleware.RequireRoles(models.RoleAdmin), courseHandler.Create)
	authed.PUT("/courses/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Update)
	authed.DELETE("/courses/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Delete)
	authed.POST("/courses/:id/prerequisites", middleware.RequireRoles(models.RoleAdmin), courseHandler.AddPrerequisite)
	authed.DELETE("/courses/:id/prerequisites/:prereqID", middleware.RequireRoles(models.RoleAdmin), courseHandler.RemovePrerequisite)
	authed.GET("/unit-limit", courseHandler.GetUnitLimit)
	authed.PUT("/unit-limit", middleware.RequireRoles(models.RoleAdmin), courseHandler.UpdateUnitLimit)

	authed.POST("/selections", middleware.RequireRoles(models.RoleStudent), selectionHandler.Select)
	authed.DELETE("/selections/:courseID", middleware.RequireRoles(models.RoleStudent), selectionHandler.Drop)
	authed.POST("/selections/finalize", middleware.RequireRoles(models.RoleStudent), selectionHandler.Finalize)
	authed.GET("/selections/draft", middleware.RequireRoles(models.RoleStudent), selectionHandler.Draft)
	authed.GET("/selections/schedule", middleware.RequireRoles(models.RoleStudent), selectionHandler.Schedule)

	authed.GET("/courses/:id/students", middleware.RequireRoles(models.RoleProfessor), selectionHandler.Roster)
	authed.DELETE("/courses/:id/students/:studentID", middleware.RequireRoles(models.RoleProfessor), selectionHandler.RemoveStudent)
	authed.PUT("/courses/:id/students/:studentID/grade", middleware.RequireRoles(models.RoleProfessor), gradeHandler.UpsertGrade)
	authed.GET("/courses/:id/grades", middleware.RequireRoles(models.RoleProfessor), gradeHandler.CourseGrades)

	authed.GET("/report-card", middleware.RequireRoles(models.RoleStudent), gradeHandler.ReportCard)
	authed.GET("/report-card/export", middleware.RequireRoles(models.RoleStudent), gradeHandler.ExportReportCard)

	authed.GET("/users", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
	authed.GET("/users/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Get)
	authed.POST("/users", middleware.RequireRoles(models.RoleAdmin), userHandler.Register)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
