package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 365, cfg.Analysis.WindowDays)
	assert.Equal(t, 30, cfg.Analysis.FrontierPoints)
	assert.Equal(t, "historical", cfg.Analysis.Estimator)
	assert.Equal(t, 10*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Analysis.CacheTTL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"window too short", func(c *Config) { c.Analysis.WindowDays = 7 }},
		{"window too long", func(c *Config) { c.Analysis.WindowDays = 5000 }},
		{"frontier points low", func(c *Config) { c.Analysis.FrontierPoints = 1 }},
		{"frontier points high", func(c *Config) { c.Analysis.FrontierPoints = 1000 }},
		{"missing fraction", func(c *Config) { c.Analysis.MaxMissingFraction = 1.5 }},
		{"zero timeout", func(c *Config) { c.Analysis.Timeout = 0 }},
		{"no origins", func(c *Config) { c.Security.AllowedOrigins = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestValidateForcesJSONLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestMergeConfigsEnvWins(t *testing.T) {
	fileCfg := *Default()
	fileCfg.Server.Port = 9000
	fileCfg.Analysis.WindowDays = 90
	fileCfg.Analysis.Estimator = "ewma"

	envCfg := Config{}
	envCfg.Server.Port = 8081

	merged := mergeConfigs(fileCfg, envCfg)
	assert.Equal(t, 8081, merged.Server.Port)
	assert.Equal(t, 90, merged.Analysis.WindowDays)
	assert.Equal(t, "ewma", merged.Analysis.Estimator)
}

func TestLoadFromFile(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	yaml := `
server:
  port: 9090
analysis:
  window_days: 180
  frontier_points: 40
  estimator: shrinkage
`
	require.NoError(t, writeFile(path, yaml))

	cfg, err := loadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 180, cfg.Analysis.WindowDays)
	assert.Equal(t, 40, cfg.Analysis.FrontierPoints)
	assert.Equal(t, "shrinkage", cfg.Analysis.Estimator)
}
