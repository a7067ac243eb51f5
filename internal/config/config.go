package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/harrison/ccinsights/internal/behavioral"
)

// DefaultOutput is the report written when no output path is given
const DefaultOutput = "my-dashboard.html"

// TierOverride replaces parts of one pricing tier. Nil fields keep the
// built-in rate; a tier name that is not built in starts from zero rates.
type TierOverride struct {
	Input      *float64 `yaml:"input" toml:"input"`
	Output     *float64 `yaml:"output" toml:"output"`
	CacheRead  *float64 `yaml:"cache_read" toml:"cache_read"`
	CacheWrite *float64 `yaml:"cache_write" toml:"cache_write"`
	Aliases    []string `yaml:"aliases" toml:"aliases"`
}

// PricingConfig represents pricing table configuration
type PricingConfig struct {
	// DefaultTier prices models that match no tier
	DefaultTier string `yaml:"default_tier" toml:"default_tier"`

	// Tiers overrides or adds per-million-token rates by tier name
	Tiers map[string]TierOverride `yaml:"tiers" toml:"tiers"`
}

// Config represents ccinsights configuration options
type Config struct {
	// InputDir is the root of the Claude Code projects tree
	InputDir string `yaml:"input_dir" toml:"input_dir"`

	// Output is the report path; in data-only mode .html becomes .json
	Output string `yaml:"output" toml:"output"`

	// DataOnly skips rendering and writes the analytics document only
	DataOnly bool `yaml:"data_only" toml:"data_only"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// LogFile enables a rotating run log at this path
	LogFile string `yaml:"log_file" toml:"log_file"`

	// MCPServers lists configured MCP servers checked for use
	MCPServers []string `yaml:"mcp_servers" toml:"mcp_servers"`

	// RequireSessions fails the run when no session is found
	RequireSessions bool `yaml:"require_sessions" toml:"require_sessions"`

	// TopN bounds ranked tables (negative keeps everything)
	TopN int `yaml:"top_n" toml:"top_n"`

	// Pricing contains cost model configuration
	Pricing PricingConfig `yaml:"pricing" toml:"pricing"`

	// Health contains health rule thresholds
	Health behavioral.Thresholds `yaml:"health" toml:"health"`

	// ErrorKeywords mark tool results as failed when they contain one
	ErrorKeywords []string `yaml:"error_keywords" toml:"error_keywords"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		InputDir:      ClaudeProjectsDir(),
		Output:        DefaultOutput,
		LogLevel:      "info",
		TopN:          behavioral.DefaultTopN,
		Pricing:       PricingConfig{DefaultTier: behavioral.DefaultTierName, Tiers: map[string]TierOverride{}},
		Health:        behavioral.DefaultThresholds(),
		ErrorKeywords: append([]string(nil), behavioral.DefaultErrorKeywords...),
	}
}

// LoadConfig loads configuration from the specified file path.
// The format follows the extension: .yaml/.yml or .toml.
// If the file doesn't exist, returns default configuration without error.
// Keys absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (supported: .yaml, .yml, .toml)", filepath.Ext(path))
	}

	if cfg.Pricing.Tiers == nil {
		cfg.Pricing.Tiers = map[string]TierOverride{}
	}
	return cfg, nil
}

// FlagOverrides carries CLI flag values; nil fields were not set
type FlagOverrides struct {
	InputDir        *string
	Output          *string
	DataOnly        *bool
	LogLevel        *string
	LogFile         *string
	MCPServers      []string
	RequireSessions *bool
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values; MCP servers given on
// the command line are added to the configured ones.
func (c *Config) MergeWithFlags(f FlagOverrides) {
	if f.InputDir != nil {
		c.InputDir = *f.InputDir
	}
	if f.Output != nil {
		c.Output = *f.Output
	}
	if f.DataOnly != nil {
		c.DataOnly = *f.DataOnly
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogFile != nil {
		c.LogFile = *f.LogFile
	}
	if len(f.MCPServers) > 0 {
		c.MCPServers = append(c.MCPServers, f.MCPServers...)
	}
	if f.RequireSessions != nil {
		c.RequireSessions = *f.RequireSessions
	}
}

// OutputPath returns the file the run writes
func (c *Config) OutputPath() string {
	out := c.Output
	if out == "" {
		out = DefaultOutput
	}
	if c.DataOnly && strings.HasSuffix(out, ".html") {
		out = strings.TrimSuffix(out, ".html") + ".json"
	}
	return out
}

// PricingTable builds the cost table from the built-in rates and the
// configured overrides
func (c *Config) PricingTable() (*behavioral.PricingTable, error) {
	rates := behavioral.DefaultRates()

	names := make([]string, 0, len(c.Pricing.Tiers))
	for name := range c.Pricing.Tiers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		o := c.Pricing.Tiers[name]
		key := strings.ToLower(strings.TrimSpace(name))
		r := rates[key]
		if o.Input != nil {
			r.Input = *o.Input
		}
		if o.Output != nil {
			r.Output = *o.Output
		}
		if o.CacheRead != nil {
			r.CacheRead = *o.CacheRead
		}
		if o.CacheWrite != nil {
			r.CacheWrite = *o.CacheWrite
		}
		if o.Aliases != nil {
			r.Aliases = o.Aliases
		}
		rates[key] = r
	}
	return behavioral.NewPricingTable(rates, c.Pricing.DefaultTier)
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return fmt.Errorf("input_dir cannot be empty")
	}

	// Validate log_level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if err := c.Health.Validate(); err != nil {
		return fmt.Errorf("invalid health thresholds: %w", err)
	}
	if _, err := c.PricingTable(); err != nil {
		return err
	}
	return nil
}
