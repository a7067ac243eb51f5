package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/ccinsights/internal/behavioral"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", "")
	cfg := DefaultConfig()

	assert.Equal(t, filepath.Join("~", ".claude", "projects"), cfg.InputDir)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, behavioral.DefaultTopN, cfg.TopN)
	assert.Equal(t, behavioral.DefaultTierName, cfg.Pricing.DefaultTier)
	assert.Equal(t, behavioral.DefaultThresholds(), cfg.Health)
	assert.Equal(t, behavioral.DefaultErrorKeywords, cfg.ErrorKeywords)
	assert.False(t, cfg.DataOnly)
	require.NoError(t, cfg.Validate())
}

func TestClaudeProjectsDirFromEnv(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", "/opt/claude")
	assert.Equal(t, filepath.Join("/opt/claude", "projects"), ClaudeProjectsDir())
}

// TestLoadConfigYAML tests loading a YAML config that overrides part of the defaults
func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `input_dir: /logs
data_only: true
log_level: debug
mcp_servers: [slack, gmail]
top_n: 5
pricing:
  default_tier: opus
  tiers:
    opus:
      input: 20
    local:
      input: 0.1
      output: 0.2
      aliases: [llama]
health:
  cost_spike_multiplier: 3
error_keywords: ["fatal:"]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/logs", cfg.InputDir)
	assert.True(t, cfg.DataOnly)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"slack", "gmail"}, cfg.MCPServers)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, []string{"fatal:"}, cfg.ErrorKeywords)
	assert.Equal(t, 3.0, cfg.Health.CostSpikeMultiplier)
	// Untouched thresholds keep their defaults
	assert.Equal(t, behavioral.DefaultThresholds().CacheEfficiencyWarnThreshold, cfg.Health.CacheEfficiencyWarnThreshold)
	assert.Equal(t, DefaultOutput, cfg.Output)

	table, err := cfg.PricingTable()
	require.NoError(t, err)
	assert.Equal(t, "opus", table.DefaultTier().Name)

	opus, _ := table.Resolve("opus")
	assert.Equal(t, 20.0, opus.Rate.Input)
	assert.Equal(t, 75.0, opus.Rate.Output, "unset rates keep the built-in value")

	local, fellBack := table.Resolve("llama")
	assert.False(t, fellBack)
	assert.Equal(t, "local", local.Name)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `input_dir = "/logs"
require_sessions = true
mcp_servers = ["slack"]

[pricing.tiers.haiku]
output = 5.0

[health]
tool_failure_min_calls = 10
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/logs", cfg.InputDir)
	assert.True(t, cfg.RequireSessions)
	assert.Equal(t, []string{"slack"}, cfg.MCPServers)
	assert.Equal(t, 10, cfg.Health.ToolFailureMinCalls)

	table, err := cfg.PricingTable()
	require.NoError(t, err)
	haiku, _ := table.Resolve("haiku")
	assert.Equal(t, 5.0, haiku.Rate.Output)
	assert.Equal(t, 0.8, haiku.Rate.Input)
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"malformed yaml", "bad.yaml", "input_dir: [unclosed"},
		{"malformed toml", "bad.toml", "input_dir = "},
		{"unknown extension", "config.json", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MCPServers = []string{"slack"}

	input := "/other"
	dataOnly := true
	level := "warn"
	cfg.MergeWithFlags(FlagOverrides{
		InputDir:   &input,
		DataOnly:   &dataOnly,
		LogLevel:   &level,
		MCPServers: []string{"gmail"},
	})

	assert.Equal(t, "/other", cfg.InputDir)
	assert.True(t, cfg.DataOnly)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"slack", "gmail"}, cfg.MCPServers)
	assert.Equal(t, DefaultOutput, cfg.Output, "nil flags keep the config value")
	assert.False(t, cfg.RequireSessions)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output   string
		dataOnly bool
		want     string
	}{
		{"", false, "my-dashboard.html"},
		{"", true, "my-dashboard.json"},
		{"stats.html", true, "stats.json"},
		{"stats.html", false, "stats.html"},
		{"data.out", true, "data.out"},
	}
	for _, tt := range tests {
		cfg := &Config{Output: tt.output, DataOnly: tt.dataOnly}
		assert.Equal(t, tt.want, cfg.OutputPath(), "output=%q dataOnly=%v", tt.output, tt.dataOnly)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty input", func(c *Config) { c.InputDir = " " }, "input_dir"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad threshold", func(c *Config) { c.Health.RetryRateWarnThreshold = -0.1 }, "health"},
		{"missing default tier", func(c *Config) { c.Pricing.DefaultTier = "gpt" }, "default tier"},
		{"negative rate", func(c *Config) {
			neg := -1.0
			c.Pricing.Tiers["opus"] = TierOverride{Input: &neg}
		}, "opus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	cfg := DefaultConfig()
	cfg.Pricing.DefaultTier = "gpt"
	assert.True(t, errors.Is(cfg.Validate(), behavioral.ErrInvalidPricing))
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	assert.Equal(t, "", FindConfigFile(dir))

	path := filepath.Join(dir, ".ccinsights.toml")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	assert.Equal(t, path, FindConfigFile(dir))
}
