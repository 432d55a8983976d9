package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/assets"
	"github.com/leslieo2/go-hot-content/internal/config"
	"github.com/leslieo2/go-hot-content/internal/constants"
	"github.com/leslieo2/go-hot-content/internal/content"
	"github.com/leslieo2/go-hot-content/internal/observability"
	"github.com/leslieo2/go-hot-content/internal/server"
)

var version = "dev"

func main() {
	configFile := pflag.String("config", "", "Path to configuration file (YAML or JSON)")
	contentRoot := pflag.String("content-root", "./assets", "Directory content keys resolve under")

	// Hot reload flags
	hotReload := pflag.Bool("hot-reload", true, "Enable the background content watcher")
	hotReloadMode := pflag.String("hot-reload-mode", constants.HotReloadModePoll, "Change trigger: poll or notify")
	hotReloadInterval := pflag.Duration("hot-reload-interval", constants.DefaultPollInterval, "Snapshot interval in poll mode")
	hotReloadDebounce := pflag.Duration("hot-reload-debounce", constants.DefaultDebounce, "Settle delay before re-diffing a detected change")

	// Admin surface flags
	adminEnabled := pflag.Bool("admin-enabled", true, "Serve the admin HTTP surface")
	adminHost := pflag.String("admin-host", "localhost", "Admin server host")
	adminPort := pflag.String("admin-port", "9464", "Admin server port")

	// Security flags
	authEnabled := pflag.Bool("auth-enabled", false, "Require an API key for mutating admin requests")
	rateLimitEnabled := pflag.Bool("rate-limit-enabled", false, "Enable per-client rate limiting on the admin surface")
	rateLimitRPS := pflag.Int("rate-limit-rps", 10, "Admin requests per second per client")

	logLevel := pflag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := pflag.String("log-format", "json", "Log format: json or console")
	tickRate := pflag.Int("tick-rate", constants.DefaultTickRate, "Host ticks per second driving the hot reload pump")

	pflag.Usage = printUsage
	pflag.Parse()

	cliFlags := &config.CLIFlags{
		ContentRoot:       contentRoot,
		HotReload:         hotReload,
		HotReloadMode:     hotReloadMode,
		HotReloadInterval: hotReloadInterval,
		HotReloadDebounce: hotReloadDebounce,
		AdminEnabled:      adminEnabled,
		AdminHost:         adminHost,
		AdminPort:         adminPort,
		AuthEnabled:       authEnabled,
		RateLimitEnabled:  rateLimitEnabled,
		RateLimitRPS:      rateLimitRPS,
		LogLevel:          logLevel,
		LogFormat:         logFormat,
		TickRate:          tickRate,
	}

	// Load configuration with precedence (CLI > Env > File > Defaults)
	cfg, err := config.LoadConfig(*configFile, cliFlags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics := observability.NewMetrics()
	if cfg.Observability.Metrics.Enabled {
		if err := metrics.Register(); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	tracer, err := observability.NewTracer(cfg.Observability.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shutdown tracer", zap.Error(err))
		}
	}()

	root, err := cfg.Content.ResolveRoot()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := content.New(content.Options{
		Root:           root,
		HotReload:      cfg.HotReload.Enabled,
		Mode:           cfg.HotReload.Mode,
		PollInterval:   cfg.HotReload.Interval,
		Debounce:       cfg.HotReload.Debounce,
		IgnoreSuffixes: cfg.Content.IgnoreSuffixes,
		Logger:         logger,
		Metrics:        metrics,
		Tracer:         tracer,
	})
	if err != nil {
		return fmt.Errorf("failed to create content manager: %w", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn("Failed to close content manager", zap.Error(err))
		}
	}()

	manager.Start(ctx)

	device := assets.NewNullDevice()
	preload(manager, cfg.Content.Preload, device, logger)

	if cfg.Admin.Enabled {
		admin, err := server.New(cfg, manager, server.Options{
			Version: version,
			Logger:  logger,
			Metrics: metrics,
			Tracer:  tracer,
		})
		if err != nil {
			return fmt.Errorf("failed to create admin server: %w", err)
		}
		go func() {
			if err := admin.Start(ctx); err != nil {
				logger.Error("Admin server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("Content host running",
		zap.String("version", version),
		zap.String("root", manager.Root()),
		zap.Bool("hot_reload", manager.HotReloadEnabled()),
		zap.Int("tick_rate", cfg.Loop.TickRate),
	)

	ticker := time.NewTicker(time.Second / time.Duration(cfg.Loop.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down content host", zap.Int("live_textures", device.Live()))
			return nil
		case <-ticker.C:
			if result := manager.HotReloadPump(); result.Total() > 0 {
				logger.Info("Hot reload pumped",
					zap.Int("applied", result.Applied),
					zap.Int("rejected", result.Rejected),
					zap.Int("dropped", result.Dropped),
					zap.Int("failed", result.Failed),
				)
			}
		}
	}
}

// preload loads the manifest entries so the watcher has something to track.
// A failed entry is logged and skipped; the registry already fell back where
// the asset kind has a default.
func preload(manager *content.Manager, entries []config.PreloadEntry, device assets.Device, logger *observability.Logger) {
	for _, entry := range entries {
		factory, params, err := assets.ForKind(entry.Kind, entry.Path, device)
		if err != nil {
			logger.Warn("Skipping preload entry", zap.String("path", entry.Path), zap.Error(err))
			continue
		}
		res, err := manager.LoadResource(content.PathKey(entry.Path), params, factory)
		if err != nil {
			logger.Warn("Failed to preload content", zap.String("path", entry.Path), zap.Error(err))
			continue
		}
		logger.Debug("Preloaded content", zap.String("path", entry.Path), zap.String("type", fmt.Sprintf("%T", res)))
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
	pflag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
	fmt.Fprintf(os.Stderr, "  %s, %s, %s\n", constants.EnvContentRoot, constants.EnvHotReload, constants.EnvHotReloadMode)
	fmt.Fprintf(os.Stderr, "  %s, %s\n", constants.EnvHotReloadInterval, constants.EnvHotReloadDebounce)
	fmt.Fprintf(os.Stderr, "  %s, %s, %s\n", constants.EnvAdminEnabled, constants.EnvAdminHost, constants.EnvAdminPort)
	fmt.Fprintf(os.Stderr, "  %s, %s, %s\n", constants.EnvLogLevel, constants.EnvLogFormat, constants.EnvTickRate)
	fmt.Fprintf(os.Stderr, "\nExample usage:\n")
	fmt.Fprintf(os.Stderr, "  %s --content-root ./assets --hot-reload-mode notify\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --config ./go-hot-content.yaml --admin-port 9465\n", os.Args[0])
}
