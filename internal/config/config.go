package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// AnalysisConfig contains the risk engine tunables. Defaults match the
// engine and builder constants; anything set here flows through both.
type AnalysisConfig struct {
	WindowDays         int           `yaml:"window_days" envconfig:"WINDOW_DAYS" default:"365"`
	MinObservations    int           `yaml:"min_observations" envconfig:"MIN_OBSERVATIONS" default:"30"`
	MaxMissingFraction float64       `yaml:"max_missing_fraction" envconfig:"MAX_MISSING_FRACTION" default:"0.20"`
	PeriodsPerYear     float64       `yaml:"periods_per_year" envconfig:"PERIODS_PER_YEAR" default:"365"`
	RiskFreeRate       float64       `yaml:"risk_free_rate" envconfig:"RISK_FREE_RATE" default:"0"`
	FrontierPoints     int           `yaml:"frontier_points" envconfig:"FRONTIER_POINTS" default:"30"`
	RidgeFactor        float64       `yaml:"ridge_factor" envconfig:"RIDGE_FACTOR" default:"1e-6"`
	Estimator          string        `yaml:"estimator" envconfig:"ESTIMATOR" default:"historical"`
	Timeout            time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"10s"`
	CacheTTL           time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL" default:"10m"`
}

// Load loads configuration from environment variables and an optional
// YAML file. Environment variables (prefix DEFIGUARD) take precedence.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DEFIGUARD", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs fills zero-valued env fields from the file config.
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Analysis.WindowDays == 0 {
		envConfig.Analysis.WindowDays = fileConfig.Analysis.WindowDays
	}
	if envConfig.Analysis.FrontierPoints == 0 {
		envConfig.Analysis.FrontierPoints = fileConfig.Analysis.FrontierPoints
	}
	if envConfig.Analysis.Estimator == "" {
		envConfig.Analysis.Estimator = fileConfig.Analysis.Estimator
	}
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Analysis.WindowDays < 30 || c.Analysis.WindowDays > 1095 {
		return fmt.Errorf("analysis window must be 30-1095 days, got %d", c.Analysis.WindowDays)
	}

	if c.Analysis.FrontierPoints < 5 || c.Analysis.FrontierPoints > 100 {
		return fmt.Errorf("frontier points must be 5-100, got %d", c.Analysis.FrontierPoints)
	}

	if c.Analysis.MaxMissingFraction < 0 || c.Analysis.MaxMissingFraction >= 1 {
		return fmt.Errorf("max missing fraction must be in [0,1), got %g", c.Analysis.MaxMissingFraction)
	}

	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis timeout must be positive")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Analysis: AnalysisConfig{
			WindowDays:         365,
			MinObservations:    30,
			MaxMissingFraction: 0.20,
			PeriodsPerYear:     365,
			RiskFreeRate:       0,
			FrontierPoints:     30,
			RidgeFactor:        1e-6,
			Estimator:          "historical",
			Timeout:            10 * time.Second,
			CacheTTL:           10 * time.Minute,
		},
	}
}
