package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/ccinsights/internal/behavioral"
	"github.com/harrison/ccinsights/internal/config"
	"github.com/harrison/ccinsights/internal/logger"
)

// addSharedFlags registers the flags every analysis command reads
func addSharedFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to config file (default: .ccinsights.yaml or .ccinsights.toml)")
	cmd.PersistentFlags().String("input", "", "Claude Code projects directory (default: ~/.claude/projects)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-file", "", "Also write a rotating run log to this file")
	cmd.PersistentFlags().StringSlice("mcp-server", nil, "Configured MCP server to check for use (repeatable)")
	cmd.PersistentFlags().Bool("require-sessions", false, "Fail when no sessions are found")
	cmd.PersistentFlags().Bool("sequential", false, "Run extractors one after another")
}

// loadConfig reads the config file and merges the flags that were set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else if found := config.FindConfigFile("."); found != "" {
		cfg, err = config.LoadConfig(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", found, err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	var overrides config.FlagOverrides
	overrides.InputDir = changedString(cmd, "input")
	overrides.Output = changedString(cmd, "output")
	overrides.LogLevel = changedString(cmd, "log-level")
	overrides.LogFile = changedString(cmd, "log-file")
	overrides.DataOnly = changedBool(cmd, "data-only")
	if overrides.DataOnly == nil {
		overrides.DataOnly = changedBool(cmd, "json-only")
	}
	overrides.RequireSessions = changedBool(cmd, "require-sessions")
	if flags.Changed("mcp-server") {
		overrides.MCPServers, _ = flags.GetStringSlice("mcp-server")
	}

	// Merge CLI flags with config (flags take precedence)
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func changedString(cmd *cobra.Command, name string) *string {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

// newRunLogger logs to w and, when configured, to the rotating log file
func newRunLogger(cfg *config.Config, w io.Writer) (*logger.MultiLogger, error) {
	loggers := []logger.RunLogger{logger.NewConsoleLogger(w, cfg.LogLevel)}
	if cfg.LogFile != "" {
		fl, err := logger.NewFileLogger(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		loggers = append(loggers, fl)
	}
	return logger.NewMultiLogger(loggers...), nil
}

// analyze runs the pipeline configured by cfg
func analyze(ctx context.Context, cmd *cobra.Command, cfg *config.Config, log *logger.MultiLogger) (*behavioral.Document, error) {
	table, err := cfg.PricingTable()
	if err != nil {
		return nil, err
	}
	sequential, _ := cmd.Flags().GetBool("sequential")

	p, err := behavioral.NewPipeline(behavioral.Options{
		InputDir:        cfg.InputDir,
		Pricing:         table,
		Thresholds:      cfg.Health,
		MCPServers:      cfg.MCPServers,
		ErrorKeywords:   cfg.ErrorKeywords,
		TopN:            cfg.TopN,
		RequireSessions: cfg.RequireSessions,
		Sequential:      sequential,
		Logger:          log,
	})
	if err != nil {
		return nil, err
	}

	log.LogInfo(fmt.Sprintf("Analyzing %s...", cfg.InputDir))
	doc, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	log.LogSummary(doc)
	return doc, nil
}
