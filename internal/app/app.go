package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"session_control_backend/internal/config"
	"session_control_backend/internal/controller"
	"session_control_backend/internal/middleware"
	"session_control_backend/internal/repository"
	"session_control_backend/internal/service"
	"session_control_backend/internal/util"
	"session_control_backend/pkg/database"
	"session_control_backend/pkg/logger"
	"session_control_backend/pkg/monitoring"
	"session_control_backend/pkg/security"
	"session_control_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	cfgMu           sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	session    *repository.SessionRepository
	submission *repository.SubmissionRepository
	rating     *repository.RatingRepository
}

type services struct {
	ai          *service.AIService
	storage     *service.StorageService
	session     *service.SessionService
	progression *service.ProgressionService
	submission  *service.SubmissionService
	rating      *service.RatingService
	agent       *service.AgentService
}

type controllers struct {
	session     *controller.SessionController
	progression *controller.ProgressionController
	submission  *controller.SubmissionController
	rating      *controller.RatingController
	agent       *controller.AgentController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig hands a reloaded configuration to every registered callback.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.cfgMu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		session:    repository.NewSessionRepository(db),
		submission: repository.NewSubmissionRepository(db),
		rating:     repository.NewRatingRepository(db),
	}
}

func initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.ai = service.NewAIService(cfg.AI)
	s.storage = service.NewStorageService(&cfg.Storage)
	s.session = service.NewSessionService(db, repos.session)
	s.progression = service.NewProgressionService(db, repos.session)
	s.submission = service.NewSubmissionService(db, repos.session, repos.submission)
	s.rating = service.NewRatingService(db, repos.session, repos.rating)
	s.agent = service.NewAgentService(db, repos.session, repos.submission, repos.rating, s.ai, s.storage, rdb, cfg.Agent)

	// cached summaries go stale on any committed session write
	s.progression.RegisterCommitHook(s.agent.InvalidateSummary)
	s.submission.RegisterCommitHook(s.agent.InvalidateSummary)
	s.rating.RegisterCommitHook(s.agent.InvalidateSummary)
	s.session.RegisterDeleteHook(s.agent.InvalidateSummary)
	s.session.RegisterDeleteHook(s.agent.RemoveReport)

	return s
}

func initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		session:     controller.NewSessionController(s.session),
		progression: controller.NewProgressionController(s.progression),
		submission:  controller.NewSubmissionController(s.submission),
		rating:      controller.NewRatingController(s.rating),
		agent:       controller.NewAgentController(s.agent),
		health:      controller.NewHealthController(db, rdb),
	}
}

func setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewEngine builds the HTTP engine over an already opened store. Redis may be nil.
func NewEngine(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*gin.Engine, *services) {
	repos := initRepositories(db)
	svcs := initServices(repos, cfg, db, rdb)
	ctrls := initControllers(svcs, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	setupMiddlewares(router, cfg)
	registerRoutes(router, ctrls)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}
	return router, svcs
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{Config: cfg, DB: db}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, summary cache disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.Router, app.services = NewEngine(cfg, db, rdb)

	ai := app.services.ai
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		ai.UpdateConfig(newCfg.AI)
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
