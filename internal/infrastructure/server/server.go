package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/formstack/internal/api/http"
	"github.com/GriffinCanCode/formstack/internal/api/middleware"
	"github.com/GriffinCanCode/formstack/internal/api/ws"
	"github.com/GriffinCanCode/formstack/internal/domain/asset"
	"github.com/GriffinCanCode/formstack/internal/domain/logic"
	"github.com/GriffinCanCode/formstack/internal/domain/manager"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/config"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/tracing"
)

// shutdownTimeout bounds the graceful HTTP shutdown
const shutdownTimeout = 5 * time.Second

// Server hosts the form manager: it owns the UI goroutine that ticks the
// manager and the optional inspector API.
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	manager  *manager.Manager
	catalog  *asset.Catalog
	hub      *ws.Hub
	settings *config.SettingsWatcher
	router   *gin.Engine
	http     *http.Server
}

// NewServer wires every component from cfg. Nothing runs until Run.
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	groups, err := config.ParseGroups(cfg.Forms.Groups)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing formstack",
		zap.String("asset_source", cfg.Assets.Source),
		zap.Int("cache_capacity", cfg.Forms.CacheCapacity),
		zap.Duration("tick", cfg.Forms.Tick),
	)

	// Initialize metrics first (needed by other components)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	loader, catalog, err := NewLoader(ctx, cfg.Assets, logger.Logger, metrics)
	if err != nil {
		return nil, err
	}

	var tracer *tracing.Tracer
	if cfg.Server.TracingEnabled {
		tracer = tracing.New("formstack", logger.Logger)
		loader = traceLoads(tracer, loader)
	}

	scripts := logic.NewFactory(logic.Config{
		Timeout:          cfg.Script.Timeout,
		MaxCallStackSize: cfg.Script.MaxCallStackSize,
	}, logger.Logger)

	hub := ws.NewHub(metrics, logger.Logger)

	mgr, err := manager.NewManager(manager.Config{
		CacheCapacity: cfg.Forms.CacheCapacity,
		StartSerialID: cfg.Forms.StartSerialID,
	}, loader, logger.Logger)
	if err != nil {
		return nil, err
	}
	mgr.WithMetrics(metrics).
		WithLogicFactory(scripts).
		WithEventSink(hub.Publish)

	for _, g := range groups {
		if !mgr.AddGroup(g.Name, g.Depth) {
			return nil, fmt.Errorf("failed to add group %q", g.Name)
		}
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		tracer:   tracer,
		manager:  mgr,
		catalog:  catalog,
		hub:      hub,
	}

	if cfg.Forms.SettingsFile != "" {
		if err := s.watchSettings(cfg.Forms.SettingsFile); err != nil {
			return nil, err
		}
	}

	s.router = s.newRouter()
	s.http = &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully", zap.Int("groups", len(groups)))
	return s, nil
}

// NewLoader builds the configured asset loader. The catalog is nil for the
// HTTP source.
func NewLoader(ctx context.Context, cfg config.AssetConfig, logger *zap.Logger, metrics *monitoring.Metrics) (asset.Loader, *asset.Catalog, error) {
	switch cfg.Source {
	case config.SourceHTTP:
		loader, err := asset.NewHTTPLoader(asset.HTTPConfig{
			BaseURL:          cfg.BaseURL,
			Timeout:          cfg.Timeout,
			Retries:          cfg.Retries,
			RPS:              cfg.RPS,
			FailureThreshold: cfg.BreakerThreshold,
			Cooldown:         cfg.BreakerCooldown,
			OnBreakerChange: func(name string, _, to resilience.State) {
				metrics.SetBreakerState(name, int(to))
			},
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		metrics.SetBreakerState("asset-origin", int(loader.BreakerState()))
		return loader, nil, nil

	default:
		catalog, err := asset.NewCatalog(cfg.Dir, nil, nil, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := catalog.Scan(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to scan assets: %w", err)
		}
		return asset.NewFileLoader(catalog, logger), catalog, nil
	}
}

// traceLoads wraps every asset load in a span
func traceLoads(tracer *tracing.Tracer, next asset.Loader) asset.Loader {
	return asset.LoaderFunc(func(ctx context.Context, assetName string) (*asset.Document, error) {
		var doc *asset.Document
		err := tracer.Trace(ctx, "asset.load", func(ctx context.Context) error {
			var err error
			doc, err = next.Load(ctx, assetName)
			return err
		}, "asset", assetName)
		return doc, err
	})
}

// Manager returns the hosted manager. It may only be used through its
// queue once Run started.
func (s *Server) Manager() *manager.Manager {
	return s.manager
}

// Handler returns the inspector HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run ticks the manager and serves the inspector until ctx is done, then
// tears everything down.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	served := make(chan struct{})

	g.Go(func() error {
		s.loop(served)
		return nil
	})

	if s.config.Server.InspectorEnabled {
		g.Go(func() error {
			defer close(served)
			return s.serve(gctx)
		})
	} else {
		go func() {
			<-gctx.Done()
			close(served)
		}()
	}

	return g.Wait()
}

// loop is the UI goroutine. It keeps running until the inspector drained
// its requests so that their queued calls still complete.
func (s *Server) loop(done <-chan struct{}) {
	queue := s.manager.Queue()
	ticker := time.NewTicker(s.config.Forms.Tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-done:
			s.stop()
			return
		case <-queue.Ready():
			// Run continuations early without advancing form time
			queue.Drain()
		case now := <-ticker.C:
			s.manager.Tick(now.Sub(last))
			last = now
		}
	}
}

func (s *Server) stop() {
	queue := s.manager.Queue()
	queue.Close()
	queue.Drain()
	s.manager.Shutdown()
	s.hub.Close()
	if s.tracer != nil {
		s.tracer.Close()
	}
	_ = s.logger.Sync()
}

func (s *Server) serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("inspector server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("inspector shutdown: %w", err)
	}
	return nil
}

func (s *Server) newRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(s.logger.Logger))
	router.Use(middleware.Recovery(s.logger.Logger))
	if s.tracer != nil {
		router.Use(tracing.HTTPMiddleware(s.tracer))
	}
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if rl := s.config.RateLimit; rl.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", rl.RequestsPerSecond),
			zap.Int("burst", rl.Burst),
		)
		cfg := middleware.DefaultRateLimitConfig()
		cfg.RequestsPerSecond = rl.RequestsPerSecond
		cfg.Burst = rl.Burst
		router.Use(middleware.RateLimit(cfg))
	}

	var assets api.AssetLister
	if s.catalog != nil {
		assets = s.catalog
	}
	handlers := api.NewHandlers(s.manager, assets, s.logger.Logger).WithMetrics(s.metrics)
	api.RegisterRoutes(router, handlers, s.registry)
	router.GET("/events", s.hub.HandleConnection)

	return router
}

// watchSettings applies the settings file now and on every change.
func (s *Server) watchSettings(path string) error {
	watcher, err := config.NewSettingsWatcher(path, s.config.Settings(), s.logger.Logger)
	if err != nil {
		return err
	}
	s.settings = watcher

	if err := s.applySettings(watcher.Current()); err != nil {
		return err
	}
	watcher.Watch(func(settings config.Settings) {
		if err := s.manager.Queue().Post(func() {
			if err := s.applySettings(settings); err != nil {
				s.logger.Warn("failed to apply settings", zap.Error(err))
			}
		}); err != nil {
			s.logger.Debug("settings change after shutdown", zap.Error(err))
		}
	})
	s.logger.Info("Watching settings file", zap.String("file", path))
	return nil
}

// applySettings runs on the UI goroutine
func (s *Server) applySettings(settings config.Settings) error {
	if settings.LogLevel != "" && settings.LogLevel != s.logger.Level() {
		if err := s.logger.SetLevel(settings.LogLevel); err != nil {
			return err
		}
	}
	return s.manager.ApplySettings(manager.Settings{
		CacheCapacity: settings.CacheCapacity,
		StartSerialID: settings.StartSerialID,
	})
}
