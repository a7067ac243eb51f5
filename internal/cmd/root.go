package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// NewRootCommand creates the root command for ccinsights
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ccinsights",
		Short: "Usage analytics for Claude Code session logs",
		Long: `ccinsights reads the JSONL session logs Claude Code writes under
~/.claude/projects and produces a usage dashboard: token usage and cost,
tool and MCP server usage, error patterns, activity over time, subagent
delegation and health recommendations.

Running ccinsights without a subcommand is equivalent to 'ccinsights report'.`,
		Version:      Version,
		SilenceUsage: true,
		RunE:         runReport,
	}

	addSharedFlags(cmd)
	addReportFlags(cmd)

	cmd.AddCommand(NewReportCommand())
	cmd.AddCommand(NewExportCommand())
	cmd.AddCommand(NewPricingCommand())

	return cmd
}
