package behavioral

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Severity ranks recommendations
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Recommendation is one finding of the health engine
type Recommendation struct {
	Severity       Severity `json:"severity"`
	Rule           string   `json:"rule"`
	Message        string   `json:"message"`
	AffectedEntity string   `json:"affected_entity"`
}

// Thresholds configures the health rules
type Thresholds struct {
	CacheEfficiencyWarnThreshold    float64 `json:"cache_efficiency_warn_threshold" yaml:"cache_efficiency_warn_threshold" toml:"cache_efficiency_warn_threshold"`
	ToolFailureWarnThreshold        float64 `json:"tool_failure_warn_threshold" yaml:"tool_failure_warn_threshold" toml:"tool_failure_warn_threshold"`
	ToolFailureMinCalls             int     `json:"tool_failure_min_calls" yaml:"tool_failure_min_calls" toml:"tool_failure_min_calls"`
	CostSpikeMultiplier             float64 `json:"cost_spike_multiplier" yaml:"cost_spike_multiplier" toml:"cost_spike_multiplier"`
	RetryRateWarnThreshold          float64 `json:"retry_rate_warn_threshold" yaml:"retry_rate_warn_threshold" toml:"retry_rate_warn_threshold"`
	SubagentIncompleteWarnThreshold float64 `json:"subagent_incomplete_warn_threshold" yaml:"subagent_incomplete_warn_threshold" toml:"subagent_incomplete_warn_threshold"`
	SkippedLineWarnRatio            float64 `json:"skipped_line_warn_ratio" yaml:"skipped_line_warn_ratio" toml:"skipped_line_warn_ratio"`
}

// DefaultThresholds returns the built-in rule thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		CacheEfficiencyWarnThreshold:    0.5,
		ToolFailureWarnThreshold:        0.2,
		ToolFailureMinCalls:             5,
		CostSpikeMultiplier:             2.0,
		RetryRateWarnThreshold:          0.1,
		SubagentIncompleteWarnThreshold: 0.25,
		SkippedLineWarnRatio:            0.05,
	}
}

// Validate checks that ratios lie in [0, 1] and counts are non-negative
func (t Thresholds) Validate() error {
	ratios := map[string]float64{
		"cache_efficiency_warn_threshold":    t.CacheEfficiencyWarnThreshold,
		"tool_failure_warn_threshold":        t.ToolFailureWarnThreshold,
		"retry_rate_warn_threshold":          t.RetryRateWarnThreshold,
		"subagent_incomplete_warn_threshold": t.SubagentIncompleteWarnThreshold,
		"skipped_line_warn_ratio":            t.SkippedLineWarnRatio,
	}
	names := lo.Keys(ratios)
	sort.Strings(names)
	for _, name := range names {
		if v := ratios[name]; v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", name, v)
		}
	}
	if t.ToolFailureMinCalls < 0 {
		return errors.New("tool_failure_min_calls must be non-negative")
	}
	if t.CostSpikeMultiplier <= 0 {
		return errors.New("cost_spike_multiplier must be positive")
	}
	return nil
}

// Rule inspects a document and emits zero or more recommendations.
// Rules must not modify the document.
type Rule struct {
	Name string
	Eval func(doc *Document, th Thresholds) []Recommendation
}

// DefaultRules returns the built-in rules in evaluation order
func DefaultRules() []Rule {
	return []Rule{
		{Name: "unused-mcp-server", Eval: unusedMCPServers},
		{Name: "low-cache-efficiency", Eval: lowCacheEfficiency},
		{Name: "tool-failure-rate", Eval: toolFailureRate},
		{Name: "cost-spike", Eval: costSpike},
		{Name: "high-retry-rate", Eval: highRetryRate},
		{Name: "incomplete-subagents", Eval: incompleteSubagents},
		{Name: "noisy-input", Eval: noisyInput},
		{Name: "pricing-fallback", Eval: pricingFallback},
	}
}

// Evaluate applies DefaultRules to doc
func Evaluate(doc *Document, th Thresholds) []Recommendation {
	return EvaluateRules(doc, th, DefaultRules())
}

// EvaluateRules applies rules in order and sorts the findings by severity,
// highest first, keeping rule order within a severity
func EvaluateRules(doc *Document, th Thresholds, rules []Rule) []Recommendation {
	recs := []Recommendation{}
	for _, rule := range rules {
		for _, rec := range rule.Eval(doc, th) {
			if rec.Rule == "" {
				rec.Rule = rule.Name
			}
			recs = append(recs, rec)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Severity.rank() > recs[j].Severity.rank()
	})
	return recs
}

// NewHealthSlice wraps recommendations with per-severity counts
func NewHealthSlice(recs []Recommendation) HealthSlice {
	counts := map[string]int{
		string(SeverityCritical): 0,
		string(SeverityWarning):  0,
		string(SeverityInfo):     0,
	}
	for _, r := range recs {
		counts[string(r.Severity)]++
	}
	return HealthSlice{Counts: counts, Recommendations: recs}
}

func unusedMCPServers(doc *Document, _ Thresholds) []Recommendation {
	var recs []Recommendation
	for _, server := range doc.MCP.Unused {
		recs = append(recs, Recommendation{
			Severity:       SeverityWarning,
			Message:        fmt.Sprintf("MCP server %q is configured but was never called; consider removing it to save context", server),
			AffectedEntity: server,
		})
	}
	return recs
}

func lowCacheEfficiency(doc *Document, th Thresholds) []Recommendation {
	t := doc.Tokens.Totals
	if t.Input+t.CacheRead+t.CacheCreation == 0 {
		return nil
	}
	rate := doc.Tokens.CacheHitRate
	if rate >= th.CacheEfficiencyWarnThreshold {
		return nil
	}
	return []Recommendation{{
		Severity: SeverityWarning,
		Message: fmt.Sprintf("cache hit rate is %.1f%%, below the %.1f%% threshold",
			rate*100, th.CacheEfficiencyWarnThreshold*100),
		AffectedEntity: ModuleTokens,
	}}
}

func toolFailureRate(doc *Document, th Thresholds) []Recommendation {
	var recs []Recommendation
	for _, tool := range doc.Tools.Tools {
		if tool.Results < th.ToolFailureMinCalls || tool.Results == 0 {
			continue
		}
		if tool.FailureRate <= th.ToolFailureWarnThreshold {
			continue
		}
		recs = append(recs, Recommendation{
			Severity: SeverityWarning,
			Message: fmt.Sprintf("%s failed %d of %d times (%.1f%%)",
				tool.Name, tool.Failures, tool.Results, tool.FailureRate*100),
			AffectedEntity: tool.Name,
		})
	}
	return recs
}

// costSpike compares every week with the previous active week
func costSpike(doc *Document, th Thresholds) []Recommendation {
	var recs []Recommendation
	weeks := doc.Tokens.Weekly
	for i := 1; i < len(weeks); i++ {
		prev, cur := weeks[i-1], weeks[i]
		if prev.Cost <= 0 || cur.Cost <= prev.Cost*th.CostSpikeMultiplier {
			continue
		}
		recs = append(recs, Recommendation{
			Severity: SeverityCritical,
			Message: fmt.Sprintf("cost in %s was $%.2f, %.1fx the $%.2f of %s",
				cur.Key, cur.Cost, cur.Cost/prev.Cost, prev.Cost, prev.Key),
			AffectedEntity: cur.Key,
		})
	}
	return recs
}

func highRetryRate(doc *Document, th Thresholds) []Recommendation {
	if doc.Tools.TotalCalls == 0 || doc.Errors.RetryRate <= th.RetryRateWarnThreshold {
		return nil
	}
	return []Recommendation{{
		Severity: SeverityWarning,
		Message: fmt.Sprintf("%.1f%% of tool calls retry a failed call (%d retries)",
			doc.Errors.RetryRate*100, doc.Errors.Retries),
		AffectedEntity: ModuleTools,
	}}
}

func incompleteSubagents(doc *Document, th Thresholds) []Recommendation {
	var recs []Recommendation
	for _, st := range doc.Subagents.Types {
		r := ratio(st.Incomplete, st.Count)
		if r <= th.SubagentIncompleteWarnThreshold {
			continue
		}
		recs = append(recs, Recommendation{
			Severity: SeverityWarning,
			Message: fmt.Sprintf("%d of %d %s subagent runs never returned a result",
				st.Incomplete, st.Count, st.Type),
			AffectedEntity: st.Type,
		})
	}
	return recs
}

func noisyInput(doc *Document, th Thresholds) []Recommendation {
	content := doc.Meta.Lines - doc.Meta.BlankLines
	r := ratio(doc.Meta.SkippedTotal, content)
	if doc.Meta.SkippedTotal == 0 || r <= th.SkippedLineWarnRatio {
		return nil
	}
	return []Recommendation{{
		Severity: SeverityInfo,
		Message: fmt.Sprintf("%d of %d log lines (%.1f%%) could not be used",
			doc.Meta.SkippedTotal, content, r*100),
		AffectedEntity: "input",
	}}
}

func pricingFallback(doc *Document, _ Thresholds) []Recommendation {
	models := make(map[string]int)
	for _, s := range doc.Tokens.Sessions {
		if s.PricingFallback {
			models[s.Model]++
		}
	}
	names := lo.Keys(models)
	sort.Strings(names)

	var recs []Recommendation
	for _, model := range names {
		entity := model
		if entity == "" {
			entity = unknownModel
		}
		recs = append(recs, Recommendation{
			Severity: SeverityInfo,
			Message: fmt.Sprintf("%d session(s) with model %s priced at the default tier %s",
				models[model], entity, doc.Meta.DefaultTier),
			AffectedEntity: entity,
		})
	}
	return recs
}

// summarize joins recommendations into a one-line digest for logs
func summarize(recs []Recommendation) string {
	parts := lo.Map(recs, func(r Recommendation, _ int) string {
		return fmt.Sprintf("%s:%s", r.Severity, r.Rule)
	})
	return strings.Join(parts, ", ")
}
