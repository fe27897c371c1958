package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/extpoint/pkg/extension"
	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Extensions    ExtensionsConfig    `yaml:"extensions"`
	Observability ObservabilityConfig `yaml:"observability"`
	Server        ServerConfig        `yaml:"server"`
}

// ExtensionsConfig holds extension loading settings
type ExtensionsConfig struct {
	// Directories whose extensions/ subdirectory holds descriptor files.
	DescriptorDirs     []string      `yaml:"descriptor_dirs"`
	InstancePolicy     string        `yaml:"instance_policy"`
	SingletonCacheSize int           `yaml:"singleton_cache_size"`
	SingletonTTL       time.Duration `yaml:"singleton_ttl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"`
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// ServerConfig holds the introspection HTTP server configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Extensions: ExtensionsConfig{
			InstancePolicy:     extension.PolicyPrototype.String(),
			SingletonCacheSize: extension.DefaultSingletonCacheSize,
			SingletonTTL:       extension.DefaultSingletonTTL,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			LogFormat:          "text",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "extpoint",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
		Server: ServerConfig{
			Addr:            ":9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile loads configuration from a YAML file. Environment variables
// override values from the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dirs := getEnv("EXTPOINT_DESCRIPTOR_DIRS", ""); dirs != "" {
		c.Extensions.DescriptorDirs = splitList(dirs)
	}
	c.Extensions.InstancePolicy = getEnv("EXTPOINT_INSTANCE_POLICY", c.Extensions.InstancePolicy)
	c.Extensions.SingletonCacheSize = getEnvInt("EXTPOINT_SINGLETON_CACHE_SIZE", c.Extensions.SingletonCacheSize)
	c.Extensions.SingletonTTL = getEnvDuration("EXTPOINT_SINGLETON_TTL", c.Extensions.SingletonTTL)

	o := &c.Observability
	o.LogLevel = getEnv("EXTPOINT_LOG_LEVEL", o.LogLevel)
	o.LogFormat = getEnv("EXTPOINT_LOG_FORMAT", o.LogFormat)
	o.MetricsEnabled = getEnvBool("EXTPOINT_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("EXTPOINT_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("EXTPOINT_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("EXTPOINT_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("EXTPOINT_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("EXTPOINT_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("EXTPOINT_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)

	c.Server.Addr = getEnv("EXTPOINT_SERVER_ADDR", c.Server.Addr)
	c.Server.ReadTimeout = getEnvDuration("EXTPOINT_SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("EXTPOINT_SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("EXTPOINT_SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := extension.ParseInstancePolicy(c.Extensions.InstancePolicy); err != nil {
		return err
	}
	if c.Extensions.SingletonCacheSize <= 0 {
		return fmt.Errorf("singleton cache size must be positive, got %d", c.Extensions.SingletonCacheSize)
	}
	if c.Extensions.SingletonTTL < 0 {
		return fmt.Errorf("singleton TTL must not be negative, got %s", c.Extensions.SingletonTTL)
	}
	for _, dir := range c.Extensions.DescriptorDirs {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("descriptor directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("descriptor directory %s is not a directory", dir)
		}
	}

	if _, err := logrus.ParseLevel(c.Observability.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	if r := c.Observability.OTelSampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("OpenTelemetry sample ratio must be within [0, 1], got %v", r)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	return nil
}

// Runtime is what Apply installed.
type Runtime struct {
	Logger  *logrus.Logger
	Metrics *observability.Metrics
}

// Apply configures m from c: logger, metrics registered on reg when enabled,
// descriptor directories and instance policy. Call it before the first
// extension lookup.
func (c *Config) Apply(m *extension.Manager, reg prometheus.Registerer) (*Runtime, error) {
	policy, err := extension.ParseInstancePolicy(c.Extensions.InstancePolicy)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Logger: observability.NewLogger(c.Observability.LogLevel, c.Observability.LogFormat, nil),
	}
	if c.Observability.MetricsEnabled && reg != nil {
		rt.Metrics = observability.NewMetrics(reg)
	}

	opts := []extension.ManagerOption{
		extension.WithLogger(rt.Logger),
		extension.WithMetrics(rt.Metrics),
		extension.WithDefaultPolicy(policy),
		extension.WithSingletonCache(c.Extensions.SingletonCacheSize, c.Extensions.SingletonTTL),
	}
	for _, dir := range c.Extensions.DescriptorDirs {
		opts = append(opts, extension.WithSources(extension.DirSource(dir)))
	}
	m.Configure(opts...)

	rt.Logger.WithFields(logrus.Fields{
		"descriptor_dirs": c.Extensions.DescriptorDirs,
		"instance_policy": policy.String(),
		"metrics":         rt.Metrics != nil,
	}).Debug("Extension manager configured")
	return rt, nil
}

// OTel returns the tracing settings for observability.InitOTel.
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
