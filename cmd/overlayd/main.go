package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/adapter/httpserver"
	"github.com/pscheid92/overlayd/internal/adapter/redis"
	"github.com/pscheid92/overlayd/internal/adapter/websocket"
	"github.com/pscheid92/overlayd/internal/app"
	"github.com/pscheid92/overlayd/internal/controller"
	"github.com/pscheid92/overlayd/internal/display"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/indicator"
	"github.com/pscheid92/overlayd/internal/permission"
	"github.com/pscheid92/overlayd/internal/platform/config"
	"github.com/pscheid92/overlayd/internal/platform/logging"
	"github.com/pscheid92/overlayd/internal/platform/version"
	"github.com/pscheid92/overlayd/internal/surface"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupPermissions(cfg *config.Config) *permission.Store {
	granted, err := cfg.Permissions()
	if err != nil {
		slog.Error("Invalid GRANTED_PERMISSIONS", "error", err)
		os.Exit(1)
	}
	store := permission.NewStore(granted...)
	if cfg.PermissionsFile != "" {
		if err := permission.NewFileSync(cfg.PermissionsFile, store).Apply(); err != nil {
			slog.Error("Invalid PERMISSIONS_FILE", "error", err)
			os.Exit(1)
		}
	}
	return store
}

func healthChecks(ctrl *controller.Controller, redisClient *goredis.Client) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{{
		Name: "controller",
		Check: func(context.Context) error {
			select {
			case <-ctrl.Done():
				return domain.ErrControllerStopped
			default:
				return nil
			}
		},
	}}
	if redisClient != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	return checks
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := setupRedis(ctx, cfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	permissions := setupPermissions(cfg)
	screen := permission.NewScreen(permissions)
	foreground := app.NewForeground(screen)
	if err := foreground.Resume(); err != nil {
		slog.Error("Failed to open foreground session", "error", err)
		os.Exit(1)
	}

	compositor := display.NewCompositor(clock, permissions, display.Options{
		Width:         cfg.DisplayWidth,
		Height:        cfg.DisplayHeight,
		AttachLatency: cfg.AttachLatency,
	})

	placement := surface.DefaultPlacement()
	placement.X, placement.Y = cfg.OverlayX, cfg.OverlayY
	builder := surface.NewBuilder(compositor, clock, surface.Config{
		Placement:    placement,
		TickInterval: cfg.TickInterval,
	})

	ctrl := controller.New(builder, indicator.NewLogIndicator(indicator.DefaultChannel()), clock, controller.Options{
		QueueSize:      cfg.QueueSize,
		SampleInterval: cfg.SampleInterval,
		OnIdle: func() {
			slog.Info("Overlay idle, background boundary released")
		},
	})

	statusStream := websocket.NewStatusStream(ctrl, clock, cfg.StatusPushInterval, cfg.MaxStatusClients,
		websocket.NewCheckOrigin(cfg.AppEnv == "development", cfg.Origins()...))

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Controller:   ctrl,
		Display:      compositor,
		Permissions:  permissions,
		Screen:       screen,
		Foreground:   foreground,
		StatusStream: statusStream,
		HealthChecks: healthChecks(ctrl, redisClient),
	}, clock)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return compositor.Run(gctx, cfg.FrameInterval)
	})

	if redisClient != nil {
		subscriber := redis.NewCommandSubscriber(redisClient, cfg.ControlChannel, ctrl)
		g.Go(func() error {
			subscriber.Start(gctx)
			return nil
		})
	}

	if cfg.PermissionsFile != "" {
		fileSync := permission.NewFileSync(cfg.PermissionsFile, permissions)
		g.Go(func() error {
			return fileSync.Run(gctx)
		})
	}

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		statusStream.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		ctrl.Stop()
		if err := foreground.Background(); err != nil {
			slog.Error("Failed to close foreground session", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
