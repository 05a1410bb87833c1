package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentoworkprojects/bill-sub001/internal/application/billing"
	"github.com/opentoworkprojects/bill-sub001/internal/application/catalog"
	"github.com/opentoworkprojects/bill-sub001/internal/application/floor"
	reportapp "github.com/opentoworkprojects/bill-sub001/internal/application/report"
	settingsapp "github.com/opentoworkprojects/bill-sub001/internal/application/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/auth"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/cache"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/config"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/event"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/messaging"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/persistence/memory"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/persistence/mongo"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/telemetry"
	"github.com/opentoworkprojects/bill-sub001/internal/interfaces/http/handler"
	"github.com/opentoworkprojects/bill-sub001/internal/interfaces/http/middleware"
	"github.com/opentoworkprojects/bill-sub001/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// storage is the order store selected by configuration
type storage struct {
	orders   order.Repository
	tables   table.Repository
	menu     menu.Repository
	settings settings.Repository
	pinger   handler.Pinger
	close    func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting POS backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("store", cfg.Database.Driver),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open order store", zap.Error(err))
	}

	projections, closeCache := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.Redis.FallbackInMemory),
	).Create(ctx)

	publisher := newPublisher(cfg, log)
	bus := event.NewInMemoryEventBus(log, event.WithHandlerTimeout(5*time.Second))
	notifier := messaging.NewOrderNotifier(publisher, cfg.NATS.SubjectPrefix)
	bus.Subscribe(notifier, notifier.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	clock := shared.SystemClock()
	settingsService := settingsapp.NewService(store.settings, projections, clock)
	catalogService := catalog.NewService(store.menu, projections, clock)
	floorService := floor.NewService(store.tables, store.orders, projections, clock)
	billingService := billing.NewService(store.orders, store.menu, store.tables, settingsService, projections, clock)
	billingService.SetEventPublisher(bus)
	reportService := reportapp.NewService(store.orders, floorService, settingsService, projections, clock)

	jwtService := auth.NewJWTService(cfg.JWT)
	if cfg.App.IsDevelopment() && cfg.JWT.DevToken {
		issueDevToken(jwtService, log)
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tp.Enabled(),
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	router.NewRouter(engine).
		Public(handler.NewHealthHandler(store.pinger, projections)).
		Register(handler.NewOrderHandler(billingService, reportService)).
		Register(handler.NewTableHandler(floorService)).
		Register(handler.NewMenuHandler(catalogService)).
		Register(handler.NewReportHandler(reportService)).
		Register(handler.NewSettingsHandler(settingsService)).
		Setup(middleware.Auth(jwtService))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not drain", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		log.Warn("Failed to close notification publisher", zap.Error(err))
	}
	if err := closeCache(); err != nil {
		log.Warn("Failed to close cache", zap.Error(err))
	}
	if err := store.close(shutdownCtx); err != nil {
		log.Warn("Failed to close order store", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("Using the in-process order store; data is lost on restart")
		s := memory.NewStore()
		return &storage{
			orders:   s.Orders(),
			tables:   s.Tables(),
			menu:     s.Menu(),
			settings: s.Settings(),
			pinger:   s,
			close:    func(context.Context) error { return nil },
		}, nil
	}

	s, err := mongo.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return &storage{
		orders:   s.Orders(),
		tables:   s.Tables(),
		menu:     s.Menu(),
		settings: s.Settings(),
		pinger:   s,
		close:    s.Close,
	}, nil
}

func newPublisher(cfg *config.Config, log *zap.Logger) messaging.Publisher {
	if cfg.NATS.URL == "" {
		log.Info("NATS disabled; order notifications are logged only")
		return messaging.NewLogPublisher(log)
	}
	p, err := messaging.NewNATSPublisher(cfg.NATS, log)
	if err != nil {
		log.Warn("NATS unavailable; order notifications are logged only", zap.Error(err))
		return messaging.NewLogPublisher(log)
	}
	return p
}

func issueDevToken(jwtService *auth.JWTService, log *zap.Logger) {
	token, expires, err := jwtService.GenerateToken(auth.GenerateTokenInput{
		TenantID: "dev-org",
		UserID:   "dev-admin",
		Username: "Developer",
		Role:     shared.RoleAdmin,
	})
	if err != nil {
		log.Warn("Failed to issue development token", zap.Error(err))
		return
	}
	log.Info("Development token issued",
		zap.String("organization_id", "dev-org"),
		zap.String("token", token),
		zap.Time("expires_at", expires),
	)
}
