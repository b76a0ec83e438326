package app

import (
	"assessment_backend/internal/config"
	"assessment_backend/internal/controller"
	"assessment_backend/internal/repository"
	"assessment_backend/internal/service"
	"assessment_backend/pkg/configwatcher"
	"assessment_backend/pkg/database"
	"assessment_backend/pkg/logger"
	"assessment_backend/pkg/monitoring"
	"assessment_backend/pkg/security"
	"assessment_backend/pkg/tracing"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	tracer          *sdktrace.TracerProvider

	// ctx 在 Shutdown 时取消，后台任务随之退出
	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	test    *repository.TestRepository
	session *repository.SessionRepository
	attempt *repository.AttemptRepository
}

type services struct {
	session *service.SessionService
	attempt *service.AttemptService
	endless *service.EndlessService
	archive *service.ArchiveService
	test    *service.TestService
}

type controllers struct {
	session *controller.SessionController
	attempt *controller.AttemptController
	endless *controller.EndlessController
	test    *controller.TestController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		test:    repository.NewTestRepository(db),
		session: repository.NewSessionRepository(db),
		attempt: repository.NewAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	provider, err := service.NewStorageProvider(a.ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.archive = service.NewArchiveService(provider)

	var recent service.RecentWindow
	if rdb != nil {
		recent = service.NewRedisRecentWindow(rdb, cfg.Endless.RecentWindow)
	} else {
		recent = service.NewMemoryRecentWindow(cfg.Endless.RecentWindow)
	}

	s.session = service.NewSessionService(repos.session, repos.test, s.archive, cfg.Session)
	s.attempt = service.NewAttemptService(repos.attempt, repos.test, s.archive, cfg.Session.AttemptListLimit)
	s.endless = service.NewEndlessService(repos.test, recent, cfg.Endless)
	s.test = service.NewTestService(repos.test)

	a.RegisterConfigCallback(func(c *config.Config) {
		s.session.SetConfig(c.Session)
		s.endless.SetConfig(c.Endless)
	})

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		session: controller.NewSessionController(s.session),
		attempt: controller.NewAttemptController(s.attempt),
		endless: controller.NewEndlessController(s.endless),
		test:    controller.NewTestController(s.test),
		health:  controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时刷新活跃会话数量指标，不修改任何会话状态
func (a *App) startBackgroundTasks(s *services) {
	refresh := func() {
		ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
		defer cancel()
		count, err := s.session.CountActive(ctx)
		if err != nil {
			logger.Log.Error("count active sessions error", zap.Error(err))
			return
		}
		monitoring.ActiveSessions.Set(float64(count))
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		refresh()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()
}

// applyConfig 热更新：日志级别和各服务的运行参数
func (a *App) applyConfig(cfg *config.Config) {
	logger.SetMode(cfg.Server.Mode)
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

// New wires the application around already opened stores. It does not start
// background work; see Start.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		ctx:    ctx,
		cancel: cancel,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		cancel()
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移，需显式 -migrate
	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app, err := New(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("assessment-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

// Start launches background tasks and the config watcher.
func (a *App) Start() {
	a.startBackgroundTasks(a.services)

	if a.Config.ConfigDir == "" {
		return
	}
	configFile := filepath.Join(a.Config.ConfigDir, "config.yaml")
	if _, err := os.Stat(configFile); err != nil {
		return
	}
	go func() {
		if err := configwatcher.WatchConfig(a.ctx, configFile, a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()
}

// Shutdown stops background work and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) {
	a.cancel()

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
}

func (a *App) Run() {
	a.Start()

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 收到中断信号后优雅关闭（5秒超时）
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.Shutdown(shutdownCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Log.Error("Server stopped with error", zap.Error(err))
	}
	logger.Log.Info("Server exiting")
}
