// Package main implements edgectl, a long-running network client that tracks
// the pipelines it owns on edge nodes and reports their traffic.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AiXpand/tsclient-sub000/client"
	"github.com/AiXpand/tsclient-sub000/config"
	"github.com/AiXpand/tsclient-sub000/health"
	"github.com/AiXpand/tsclient-sub000/metric"
	"github.com/AiXpand/tsclient-sub000/natsclient"
	"github.com/AiXpand/tsclient-sub000/pkg/buffer"
	"github.com/AiXpand/tsclient-sub000/pkg/retry"
	"github.com/AiXpand/tsclient-sub000/transport"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "edgectl"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	if err := loadEnvFile(cliCfg.EnvFile); err != nil {
		return err
	}

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.WriteConfig != "" {
		if err := writeConfig(cfg, cliCfg.WriteConfig); err != nil {
			return err
		}
		logger.Info("Configuration written", "path", cliCfg.WriteConfig)
	}
	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config", cfg.String())
		return nil
	}

	logger.Info("Starting edgectl",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"initiator", cfg.Client.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()

	natsClient, err := connectToNATS(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
		defer closeCancel()
		if err := natsClient.Close(closeCtx); err != nil {
			logger.Warn("NATS close failed", "error", err)
		}
	}()
	monitor.Register("nats", func() health.Status {
		if natsClient.IsHealthy() {
			return health.NewHealthy("nats", "connected to "+natsClient.URL())
		}
		return health.NewUnhealthy("nats", natsClient.Status().String())
	})

	store, closeStore, err := setupBuffer(ctx, cfg.Buffer, registry, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tr := transport.New(natsClient, cfg.Topics,
		transport.WithRateLimit(cfg.Transport.RatePerNode, cfg.Transport.Burst),
		transport.WithLogger(logger),
		transport.WithMetrics(registry.CoreMetrics()))

	c := client.New(cfg.Client.Name, tr,
		client.WithConfig(cfg.Client),
		client.WithLogger(logger),
		client.WithMetrics(registry),
		client.WithBuffer(store))
	monitor.Register("client", c.Health)

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start client: %w", err)
	}

	var server *metric.Server
	if cfg.Metrics.Enabled {
		server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry, func() error {
			return monitor.Aggregate(appName).Err()
		})
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		logger.Info("Metrics server listening", "address", server.Address())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		watchEvents(c, logger)
	}()

	logger.Info("edgectl started", "fleet", c.Fleet(), "session_id", c.SessionID())
	<-ctx.Done()
	logger.Info("Received shutdown signal")

	if err := c.Stop(cliCfg.ShutdownTimeout); err != nil {
		logger.Warn("Client stop incomplete", "error", err)
	}
	<-done

	if server != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
		defer stopCancel()
		if err := server.Stop(stopCtx); err != nil {
			logger.Warn("Metrics server stop failed", "error", err)
		}
	}

	logger.Info("edgectl shutdown complete")
	return nil
}

// loadEnvFile exports a dotenv file into the process environment. Variables
// already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	slog.Debug("Environment file loaded", "path", path)
	return nil
}

// loadConfig applies defaults, the optional file and AIXP_* overrides
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// writeConfig saves the merged configuration, env overrides included
func writeConfig(cfg *config.Config, path string) error {
	if err := cfg.SaveToFile(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// connectToNATS dials the broker, retrying with backoff while the failure is transient
func connectToNATS(ctx context.Context, cfg *config.Config, registry *metric.MetricsRegistry,
	logger *slog.Logger) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithName(cfg.Client.Name),
		natsclient.WithLogger(natsclient.NewSlogLogger(logger)),
		natsclient.WithMetrics(registry.CoreMetrics()),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
		natsclient.WithTimeout(cfg.NATS.ConnectTimeout),
		natsclient.WithCircuitBreakerThreshold(int32(cfg.NATS.CircuitThreshold)),
	}
	switch {
	case cfg.NATS.Token != "":
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	case cfg.NATS.Username != "":
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}

	natsClient, err := natsclient.NewClient(strings.Join(cfg.NATS.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	policy := retry.Connect()
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("NATS connect failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err)
	}
	if err := retry.Do(ctx, policy, func() error { return natsClient.Connect(ctx) }); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := natsClient.WaitForConnection(waitCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}
	logger.Info("Connected to NATS", "url", natsClient.URL())
	return natsClient, nil
}

// setupBuffer creates the warm-up store selected by the configuration
func setupBuffer(ctx context.Context, cfg config.BufferConfig, registry *metric.MetricsRegistry,
	logger *slog.Logger) (buffer.Store, func(), error) {
	switch cfg.Backend {
	case config.BufferRedis:
		rdb, err := buffer.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		store := buffer.NewRedisStore(rdb,
			buffer.WithRedisPrefix(cfg.RedisPrefix),
			buffer.WithRedisLogger(logger))
		logger.Info("Warm-up buffer ready", "backend", cfg.Backend, "addr", cfg.RedisAddr)
		return store, closer(rdb, logger), nil
	default:
		store, err := buffer.NewMemoryStore(cfg.Capacity,
			buffer.WithMetrics(registry, "warmup"),
			buffer.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("create memory buffer: %w", err)
		}
		logger.Info("Warm-up buffer ready", "backend", cfg.Backend, "capacity", cfg.Capacity)
		return store, closer(store, logger), nil
	}
}

func closer(c io.Closer, logger *slog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("Buffer close failed", "error", err)
		}
	}
}
