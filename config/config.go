package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// VFSConfig controls how the page store is registered.
type VFSConfig struct {
	Name        string `yaml:"name"`
	MakeDefault bool   `yaml:"make_default"`
	PathPrefix  string `yaml:"path_prefix"`
	SectorSize  int    `yaml:"sector_size"`
	MaxPathname int    `yaml:"max_pathname"`
	// DeniedNames are path.Match patterns of base names that may not be
	// opened or deleted.
	DeniedNames []string `yaml:"denied_names"`
	// SizeAlertBytes logs a warning when a synced file grows past it. Zero
	// disables the alert.
	SizeAlertBytes int64 `yaml:"size_alert_bytes"`
}

// StorageConfig selects the blob store holding pages.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "memory" or "dir"
	DataDir string `yaml:"data_dir"`
}

// DurableConfig configures the asynchronous syncer behind a memory store.
type DurableConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"` // "none", "snappy", "lz4", "zstd"
	Concurrency int    `yaml:"concurrency"`
	LockTimeout string `yaml:"lock_timeout"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // e.g., "debug", "info", "warn", "error"
	Output string `yaml:"output"` // e.g., "stdout", "file", "none"
	File   string `yaml:"file"`   // Path to the log file, used if output is "file"
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // e.g., "localhost:4317" for gRPC OTLP collector
	Protocol string `yaml:"protocol"` // "grpc" or "http"
}

// DebugConfig holds debugging-related configurations.
type DebugConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ListenAddress    string `yaml:"listen_address"`
	PProfEnabled     bool   `yaml:"pprof_enabled"`
	MetricsEnabled   bool   `yaml:"metrics_enabled"`
	MonitorUIEnabled bool   `yaml:"monitor_ui_enabled"`
	CollectInterval  string `yaml:"collect_interval"`
}

// Config is the top-level configuration struct.
type Config struct {
	VFS             VFSConfig     `yaml:"vfs"`
	Storage         StorageConfig `yaml:"storage"`
	Durable         DurableConfig `yaml:"durable"`
	Logging         LoggingConfig `yaml:"logging"`
	Tracing         TracingConfig `yaml:"tracing"`
	Debug           DebugConfig   `yaml:"debug"`
	ShutdownTimeout string        `yaml:"shutdown_timeout"`
}

// ParseDuration parses a duration string. Returns the default duration if the string is empty or invalid.
// Logs a warning if the string is invalid but not empty.
func ParseDuration(durationStr string, defaultDuration time.Duration, logger *slog.Logger) time.Duration {
	if durationStr == "" || durationStr == "0" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		if logger != nil {
			logger.Warn("Invalid duration format, using default", "input", durationStr, "default", defaultDuration.String(), "error", err)
		}
		return defaultDuration
	}
	return d
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		VFS: VFSConfig{
			Name:        "pagevfs",
			MakeDefault: false,
			PathPrefix:  "/pagevfs/",
			SectorSize:  32,
			MaxPathname: 512,
		},
		Storage: StorageConfig{
			Backend: "memory",
			DataDir: "./data",
		},
		Durable: DurableConfig{
			Enabled:     true,
			Dir:         "./data/durable",
			Compression: "snappy",
			Concurrency: 4,
			LockTimeout: "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
			File:   "nexusvfs.log",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
		Debug: DebugConfig{
			Enabled:          false,
			ListenAddress:    "127.0.0.1:6060",
			PProfEnabled:     true,
			MetricsEnabled:   true,
			MonitorUIEnabled: true,
			CollectInterval:  "15s",
		},
		ShutdownTimeout: "10s",
	}
}

// Validate rejects values the wiring cannot act on.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "dir":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "dir" && c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required for the dir backend")
	}
	if c.Durable.Enabled {
		if c.Storage.Backend != "memory" {
			return fmt.Errorf("durable syncing requires the memory backend")
		}
		if c.Durable.Dir == "" {
			return fmt.Errorf("durable.dir is required when durable syncing is enabled")
		}
	}
	switch c.Tracing.Protocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("unknown tracing protocol %q", c.Tracing.Protocol)
	}
	if c.VFS.Name == "" {
		return fmt.Errorf("vfs.name must not be empty")
	}
	return nil
}

// Load reads configuration from an io.Reader.
// This is the core logic, separated for testability.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()

	// If the reader is nil, it's like an empty file, return defaults.
	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	// Unmarshal YAML into the config struct, overwriting defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from a YAML file by path.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// If file doesn't exist, return default config by calling Load with a nil reader.
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}
