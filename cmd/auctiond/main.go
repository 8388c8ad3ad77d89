package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/kameshai/premier-auction/internal/api"
	"github.com/kameshai/premier-auction/internal/auction"
	"github.com/kameshai/premier-auction/internal/authn"
	"github.com/kameshai/premier-auction/internal/config"
	"github.com/kameshai/premier-auction/internal/health"
	"github.com/kameshai/premier-auction/internal/media"
	"github.com/kameshai/premier-auction/internal/scout"
	"github.com/kameshai/premier-auction/internal/store"
	"github.com/kameshai/premier-auction/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/kameshai/premier-auction/internal/store/memory"
	_ "github.com/kameshai/premier-auction/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clockwork.NewRealClock()

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	if repos.Closer != nil {
		defer repos.Closer.Close()
	}
	logger.InfoContext(ctx, "connected to store", slog.String("driver", cfg.Database.Driver))

	mediaStore, err := media.NewFileStore(cfg.Media, clk)
	if err != nil {
		return fmt.Errorf("initializing media store: %w", err)
	}

	var sessions authn.SessionStore
	var redisPing func(context.Context) error
	switch cfg.Auth.SessionStore {
	case "redis":
		redisStore, redisErr := authn.NewRedisStore(ctx, cfg.Auth.RedisAddr)
		if redisErr != nil {
			return fmt.Errorf("initializing redis session store: %w", redisErr)
		}
		defer redisStore.Close()
		sessions = redisStore
		redisPing = redisStore.Ping
	default:
		sessions = authn.NewMemoryStore(clk)
	}
	auth := authn.NewService(cfg.Auth, sessions, logger)

	reporter := scout.NewClient(cfg.Scout, logger)

	engine := auction.NewEngine(
		cfg.Auction,
		repos.Players,
		repos.Franchises,
		repos.Events,
		reporter,
		logger,
		tp.TracerProvider,
		clk,
	)
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("loading auction state: %w", err)
	}

	checkers := []health.Checker{}
	if repos.Ping != nil {
		checkers = append(checkers, health.Checker{Name: "database", Check: repos.Ping})
	}
	if redisPing != nil {
		checkers = append(checkers, health.Checker{Name: "redis", Check: redisPing})
	}
	healthHandler := health.NewHandler(clk, checkers...)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.LivenessHandler())
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler())
	mux.Handle("/media/", mediaStore.Handler())
	mux.Handle("/api/", api.NewRouter(api.RouterConfig{
		Logger: logger,
		Engine: engine,
		Auth:   auth,
		Media:  mediaStore,
	}))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "server error", slog.Any("error", listenErr))
			cancel()
		}
	}()

	healthHandler.SetReady(true)
	logger.InfoContext(ctx, "auctiond is running", slog.String("version", version))

	<-ctx.Done()
	logger.Info("shutting down...")
	healthHandler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
