package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	EnvFile         string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Validate        bool
	WriteConfig     string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("EDGECTL_CONFIG", ""),
		"Path to a JSON or YAML configuration file; defaults apply when empty (env: EDGECTL_CONFIG)")
	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("EDGECTL_CONFIG", ""),
		"Path to configuration file (env: EDGECTL_CONFIG)")

	flag.StringVar(&cfg.EnvFile, "env-file",
		getEnv("EDGECTL_ENV_FILE", ".env"),
		"Dotenv file loaded before configuration, ignored when missing (env: EDGECTL_ENV_FILE)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("EDGECTL_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: EDGECTL_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("EDGECTL_LOG_FORMAT", "json"),
		"Log format: json, text (env: EDGECTL_LOG_FORMAT)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("EDGECTL_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: EDGECTL_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.Validate, "validate", getEnvBool("EDGECTL_VALIDATE", false),
		"Validate configuration and exit (env: EDGECTL_VALIDATE)")

	flag.StringVar(&cfg.WriteConfig, "write-config", getEnv("EDGECTL_WRITE_CONFIG", ""),
		"Write the merged configuration as JSON to this path (env: EDGECTL_WRITE_CONFIG)")

	flag.Usage = printDetailedHelp
	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.WriteConfig != "" && !strings.EqualFold(filepath.Ext(cfg.WriteConfig), ".json") {
		return fmt.Errorf("write-config must be a .json path: %s", cfg.WriteConfig)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}
	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - edge node network client

Connects to the broker, tracks the pipelines owned by this client on every
node that sends heartbeats and logs notifications and payloads.

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with a config file and readable logs
  %s --config=edgectl.yaml --log-format=text

  # Override single settings through the environment
  export AIXP_NATS_URLS=nats://broker:4222
  export AIXP_FLEET=gts-1,gts-2
  %s

  # Validate configuration only
  %s --config=edgectl.yaml --validate

  # Validate and write the merged result with env overrides applied
  %s --config=edgectl.yaml --validate --write-config=merged.json

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
