package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loopback-labs/sentinel-loop/internal/models"
	"github.com/loopback-labs/sentinel-loop/internal/utils"
)

// Config captures everything the controller needs at startup. It is built
// once, validated, and passed to components by value; there is no hot reload.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Loop    LoopConfig    `yaml:"loop"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP ingestion listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoopConfig holds the detection-and-dispatch tuning knobs.
type LoopConfig struct {
	CollectionInterval time.Duration `yaml:"collectionInterval"`
	AnalysisWindow     time.Duration `yaml:"analysisWindow"`
	StddevMultiplier   float64       `yaml:"anomalyStddevMultiplier"`
	ActionCooldown     time.Duration `yaml:"actionCooldown"`
	MaxConcurrent      int           `yaml:"maxConcurrentActions"`
	ActionTimeout      time.Duration `yaml:"actionTimeout"`
	RetentionDays      int           `yaml:"retentionDays"`
	SelfMetrics        bool          `yaml:"selfMetrics"`

	Thresholds map[models.MetricType]Threshold `yaml:"thresholds"`
}

// Threshold holds the warning and critical levels for one metric type.
type Threshold struct {
	Warning  float64 `yaml:"warning"`
	Critical float64 `yaml:"critical"`
}

// StoreConfig selects and configures the metric/action store backend.
type StoreConfig struct {
	Backend      string        `yaml:"backend"` // "redis" or "memory"
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file plus environment overrides, then
// validates it. Validation failures are fatal startup errors by design.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SENTINEL_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, utils.NewAppError("config.Load", fmt.Sprintf("config file %s not found", path), err)
			}
			return nil, utils.NewAppError("config.Load", "read config", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, utils.NewAppError("config.Load", "parse config", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			GracefulTimeout: 10 * time.Second,
		},
		Loop: LoopConfig{
			CollectionInterval: 30 * time.Second,
			AnalysisWindow:     60 * time.Minute,
			StddevMultiplier:   2.5,
			ActionCooldown:     300 * time.Second,
			MaxConcurrent:      3,
			ActionTimeout:      60 * time.Second,
			RetentionDays:      30,
			SelfMetrics:        true,
			Thresholds: map[models.MetricType]Threshold{
				models.MetricResponseTime: {Warning: 1.0, Critical: 3.0},
				models.MetricErrorRate:    {Warning: 0.01, Critical: 0.05},
				models.MetricMemoryUsage:  {Warning: 70.0, Critical: 85.0},
				models.MetricCPUUsage:     {Warning: 75.0, Critical: 90.0},
				models.MetricSuccessRate:  {Warning: 95.0, Critical: 90.0},
			},
		},
		Store: StoreConfig{
			Backend:      "memory",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

// Validate enforces startup invariants. A Config that fails validation must
// abort the process; none of these conditions are runtime-recoverable.
func (c *Config) Validate() error {
	if c.Loop.CollectionInterval <= 0 {
		return fmt.Errorf("loop.collectionInterval must be positive")
	}
	if c.Loop.AnalysisWindow <= 0 {
		return fmt.Errorf("loop.analysisWindow must be positive")
	}
	if c.Loop.StddevMultiplier <= 0 {
		return fmt.Errorf("loop.anomalyStddevMultiplier must be positive")
	}
	if c.Loop.ActionCooldown < 0 {
		return fmt.Errorf("loop.actionCooldown must not be negative")
	}
	if c.Loop.MaxConcurrent < 1 {
		return fmt.Errorf("loop.maxConcurrentActions must be at least 1")
	}
	if c.Loop.ActionTimeout <= 0 {
		return fmt.Errorf("loop.actionTimeout must be positive")
	}
	if c.Loop.RetentionDays < 1 {
		return fmt.Errorf("loop.retentionDays must be at least 1")
	}
	if len(c.Loop.Thresholds) == 0 {
		return fmt.Errorf("loop.thresholds must configure at least one metric type")
	}
	for mt, th := range c.Loop.Thresholds {
		if !models.ValidMetricType(mt) {
			return fmt.Errorf("loop.thresholds: unknown metric type %q", mt)
		}
		// success_rate degrades downward, so its critical level sits below warning.
		if mt == models.MetricSuccessRate {
			if th.Critical >= th.Warning {
				return fmt.Errorf("loop.thresholds[%s]: critical must be below warning", mt)
			}
			continue
		}
		if th.Critical <= th.Warning {
			return fmt.Errorf("loop.thresholds[%s]: critical must be above warning", mt)
		}
	}

	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.Addr == "" {
			return fmt.Errorf("store.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be \"redis\" or \"memory\", got %q", c.Store.Backend)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SENTINEL_COLLECTION_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Loop.CollectionInterval = d
		}
	}
	if v := os.Getenv("SENTINEL_ANALYSIS_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Loop.AnalysisWindow = d
		}
	}
	if v := os.Getenv("SENTINEL_STDDEV_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Loop.StddevMultiplier = f
		}
	}
	if v := os.Getenv("SENTINEL_ACTION_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Loop.ActionCooldown = d
		}
	}
	if v := os.Getenv("SENTINEL_MAX_CONCURRENT_ACTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Loop.MaxConcurrent = n
		}
	}
	if v := os.Getenv("SENTINEL_ACTION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Loop.ActionTimeout = d
		}
	}
	if v := os.Getenv("SENTINEL_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Loop.RetentionDays = n
		}
	}
	if v := os.Getenv("SENTINEL_SELF_METRICS"); v != "" {
		cfg.Loop.SelfMetrics = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("SENTINEL_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("SENTINEL_REDIS_ADDR"); v != "" {
		cfg.Store.Addr = v
	}
	if v := os.Getenv("SENTINEL_REDIS_PASSWORD"); v != "" {
		cfg.Store.Password = v
	}
	if v := os.Getenv("SENTINEL_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.DB = n
		}
	}
	if v := os.Getenv("SENTINEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SENTINEL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
