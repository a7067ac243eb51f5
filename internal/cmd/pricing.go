package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewPricingCommand creates the 'ccinsights pricing' command
func NewPricingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Show the pricing table used for cost estimates",
		Long: `Show the resolved pricing tiers, in USD per million tokens, after
config overrides are applied.

Examples:
  ccinsights pricing
  ccinsights pricing --model claude-sonnet-4-5-20250929`,
		Args: cobra.NoArgs,
		RunE: runPricing,
	}

	cmd.Flags().String("model", "", "Show which tier a model name resolves to")
	return cmd
}

func runPricing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	table, err := cfg.PricingTable()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	header := color.New(color.Bold)
	defaultTier := table.DefaultTier().Name

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header.Sprint("TIER\tINPUT\tOUTPUT\tCACHE READ\tCACHE WRITE\tALIASES"))
	for _, tier := range table.Tiers() {
		name := tier.Name
		if name == defaultTier {
			name += " (default)"
		}
		r := tier.Rate
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			name, r.Input, r.Output, r.CacheRead, r.CacheWrite, strings.Join(r.Aliases, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if model, _ := cmd.Flags().GetString("model"); model != "" {
		tier, fellBack := table.Resolve(model)
		if fellBack {
			color.New(color.FgYellow).Fprintf(out, "\n%s is not priced; using default tier %s\n", model, tier.Name)
		} else {
			fmt.Fprintf(out, "\n%s resolves to tier %s\n", model, tier.Name)
		}
	}
	return nil
}
