package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sheetforge/sheetforge/internal/capability"
	"github.com/sheetforge/sheetforge/internal/infrastructure/config"
	"github.com/sheetforge/sheetforge/internal/infrastructure/logging"
	"github.com/sheetforge/sheetforge/internal/infrastructure/monitoring"
	"github.com/sheetforge/sheetforge/internal/kernel"
	"github.com/sheetforge/sheetforge/internal/notify"
	"github.com/sheetforge/sheetforge/internal/seed"
	"github.com/sheetforge/sheetforge/internal/store"
)

// Server wraps the HTTP server and the kernel it fronts
type Server struct {
	router   *gin.Engine
	kernel   *kernel.Kernel
	caps     *capability.Set
	handlers *Handlers
	hub      *notify.Hub
	backing  store.BackingStore
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	logCfg.Development = cfg.Logging.Development
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("Initializing sheetforge server",
		zap.String("port", cfg.Server.Port),
		zap.String("store_dsn", cfg.Store.DSN),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Backing store: sqlite when a DSN is configured, memory otherwise
	var backing store.BackingStore
	if cfg.Store.DSN != "" {
		sq, err := store.OpenSQLite(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		backing = sq
		logger.Info("SQLite store opened", zap.String("dsn", cfg.Store.DSN))
	} else {
		backing = store.NewMemory()
		logger.Info("Using in-memory store")
	}

	// Kernel, notifier, and change hub
	kern := kernel.New(logger.Named("kernel"))
	kern.SetObserver(metrics)

	hub := notify.NewHub(logger.Named("ws"))
	notifier := notify.New(logger.Named("notify"))
	notifier.Subscribe(hub.OnChange)
	notifier.SetObserver(metrics.ObserveNotify)
	kern.SetNotifier(notifier)

	// Rule tables
	var rules *seed.Rules
	if cfg.Seed.RulesPath != "" {
		rules, err = seed.LoadRules(cfg.Seed.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		if cfg.Seed.OverridePath != "" {
			if err := rules.ApplyOverrides(cfg.Seed.OverridePath); err != nil {
				return nil, fmt.Errorf("failed to apply rule overrides: %w", err)
			}
		}
	} else {
		rules = &seed.Rules{}
	}

	// Mount capabilities
	caps := capability.Bootstrap(kern, capability.Options{
		Rules:      rules.StackingRules(),
		Skills:     rules.SkillDefinitions(),
		Conditions: rules.ConditionDefinitions(),
		Store:      backing,
	}, logger.Named("capability"))

	// Seed entities
	if cfg.Seed.EntitiesDir != "" {
		seeder := seed.NewSeeder(kern, cfg.Seed.EntitiesDir, logger.Named("seed"))
		n, err := seeder.SeedEntities()
		if err != nil {
			logger.Warn("Entity seeding incomplete", zap.Error(err))
		} else {
			logger.Info("Entities seeded", zap.Int("count", n))
		}
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(CORS(DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(RateLimit(RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := NewHandlers(kern, caps, hub, metrics, logger.Named("http"))

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Entity namespace
	router.POST("/entities", handlers.CreateEntity)
	router.GET("/entities", handlers.ListEntities)
	router.GET("/entities/:id", handlers.GetEntity)
	router.PUT("/entities/:id", handlers.UpdateEntity)
	router.DELETE("/entities/:id", handlers.DeleteEntity)
	router.GET("/entities/:id/bonuses/:target", handlers.BonusBreakdown)

	// Backing store
	router.POST("/entities/:id/load", handlers.LoadEntity)
	router.POST("/entities/:id/flush", handlers.FlushEntity)
	router.POST("/flush", handlers.FlushAll)

	// Capability devices
	router.POST("/dev/:device/ioctl", handlers.Ioctl)

	// Computed views
	router.GET("/proc/*path", handlers.ReadProc)

	// Snapshots
	router.GET("/snapshot", handlers.ExportSnapshot)
	router.POST("/snapshot", handlers.ImportSnapshot)

	// WebSocket change stream
	router.GET("/stream", hub.HandleConnection)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
	router.GET("/metrics/json", handlers.MetricsSummary)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		kernel:   kern,
		caps:     caps,
		handlers: handlers,
		hub:      hub,
		backing:  backing,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Kernel exposes the kernel for embedding and tests
func (s *Server) Kernel() *kernel.Kernel { return s.kernel }

// Capabilities exposes the wired capability set
func (s *Server) Capabilities() *capability.Set { return s.caps }

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine { return s.router }

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close flushes live state to the backing store and releases resources
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.handlers.mu.Lock()
	if n, errno := s.caps.Database.FlushAll(context.Background()); errno.Ok() {
		s.logger.Info("Flushed entities to store", zap.Int("count", n))
	} else {
		s.logger.Error("Final flush failed", zap.String("errno", errno.String()))
	}
	s.caps.Registry.Shutdown()
	s.handlers.mu.Unlock()

	if err := s.backing.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		return fmt.Errorf("failed to close store: %w", err)
	}

	s.logger.Sync()
	return nil
}
