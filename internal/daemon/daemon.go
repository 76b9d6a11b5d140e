package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mindpath-app/mindpath/internal/api"
	"github.com/mindpath-app/mindpath/internal/app/engagement"
	"github.com/mindpath-app/mindpath/internal/health"
	"github.com/mindpath-app/mindpath/internal/infra/catalog"
	"github.com/mindpath-app/mindpath/internal/infra/sqlite"
)

// Daemon is the core mindpath runtime. It wires together all services.
type Daemon struct {
	Config  Config
	Log     *zap.Logger
	DB      *sqlite.DB
	Catalog *catalog.Catalog
	Engine  *engagement.Engine
	Service *engagement.Service
	Health  *health.Checker
	Server  *api.Server
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return NewWithLogger(cfg, logger)
}

// NewWithLogger creates a Daemon with the given configuration and logger.
func NewWithLogger(cfg Config, logger *zap.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cat, err := catalog.Load(cfg.Engagement.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	db, err := sqlite.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	eng := engagement.NewEngine(cat, engagement.AllAchievements())
	notifier := engagement.NewNotificationServiceWithPolicy(db, cfg.Engagement.Notifications, logger)
	svc := engagement.NewService(db, eng, notifier, logger,
		engagement.WithDefaultTimeZone(cfg.Engagement.DefaultTimeZone))

	checker := health.NewChecker(db, cfg.Storage.DataDir, cat, logger)
	checker.SetInterval(parseDuration(cfg.Telemetry.HealthInterval, health.DefaultInterval))

	srv := api.NewServer(svc, cat, logger)
	srv.SetHealth(checker)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	logger.Debug("daemon initialized",
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.Int("exercises", cat.Len()),
		zap.Int("achievements", len(eng.Achievements)))

	return &Daemon{
		Config:  cfg,
		Log:     logger,
		DB:      db,
		Catalog: cat,
		Engine:  eng,
		Service: svc,
		Health:  checker,
		Server:  srv,
	}, nil
}

// Addr returns the configured listen address.
func (d *Daemon) Addr() string {
	return net.JoinHostPort(d.Config.API.Host, strconv.Itoa(d.Config.API.Port))
}

// Serve starts the HTTP server and health loop, blocking until ctx is
// cancelled or SIGINT/SIGTERM arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", d.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return d.serveListener(ctx, ln)
}

func (d *Daemon) serveListener(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      api.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Health.Run(gctx)
		return nil
	})

	g.Go(func() error {
		d.Log.Info("serving", zap.String("addr", "http://"+ln.Addr().String()))
		if d.Config.Telemetry.Prometheus {
			d.Log.Info("metrics enabled", zap.String("url", "http://"+ln.Addr().String()+"/metrics"))
		}
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := parseDuration(d.Config.API.ShutdownTimeout, 15*time.Second)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		d.Log.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Log.Warn("close database", zap.Error(err))
		}
	}
	_ = d.Log.Sync()
}
