package behavioral

// Module names, used as document keys and as affected entities of recommendations
const (
	ModuleTokens       = "tokens"
	ModuleTools        = "tools"
	ModuleMCP          = "mcp"
	ModuleSubagents    = "subagents"
	ModuleTimePatterns = "time_patterns"
	ModuleChains       = "chains"
	ModuleErrors       = "errors"
	ModuleProjects     = "projects"
	ModuleSessions     = "sessions"
	ModuleHealth       = "health"
)

// Document is the complete analytics result of one run.
// Every field is JSON-compatible; times are RFC3339 strings and durations
// integer milliseconds.
type Document struct {
	Meta         Meta             `json:"meta"`
	Tokens       TokenSlice       `json:"tokens"`
	Tools        ToolSlice        `json:"tools"`
	MCP          MCPSlice         `json:"mcp"`
	Subagents    SubagentSlice    `json:"subagents"`
	TimePatterns TimePatternSlice `json:"time_patterns"`
	Chains       ChainSlice       `json:"chains"`
	Errors       ErrorSlice       `json:"errors"`
	Projects     ProjectSlice     `json:"projects"`
	Sessions     SessionSlice     `json:"sessions"`
	Health       HealthSlice      `json:"health"`
}

// DateRange is the span of event timestamps covered by a document
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Meta describes the run that produced a document
type Meta struct {
	GeneratedAt         string         `json:"generated_at"`
	InputRoot           string         `json:"input_root"`
	Fingerprint         string         `json:"fingerprint"`
	DateRange           DateRange      `json:"date_range"`
	Files               int            `json:"files"`
	SubagentFiles       int            `json:"subagent_files"`
	Bytes               int64          `json:"bytes"`
	Lines               int            `json:"lines"`
	ParsedLines         int            `json:"parsed_lines"`
	BlankLines          int            `json:"blank_lines"`
	NonMessageLines     int            `json:"non_message_lines"`
	Sessions            int            `json:"sessions"`
	Events              int            `json:"events"`
	Skipped             map[string]int `json:"skipped"`
	SkippedTotal        int            `json:"skipped_total"`
	SkipSamples         []Skipped      `json:"skip_samples"`
	DuplicateUsageLines int            `json:"duplicate_usage_lines"`
	ReadErrors          []string       `json:"read_errors"`
	DefaultTier         string         `json:"default_tier"`
	TopN                int            `json:"top_n"`
	Notes               []string       `json:"data_quality_notes"`
}

// Tokens and cost

// TokenBucket is a token and cost sum for one key (day, week, project, model)
type TokenBucket struct {
	Key         string      `json:"key"`
	Tokens      TokenCounts `json:"tokens"`
	TotalTokens int64       `json:"total_tokens"`
	Cost        float64     `json:"cost"`
}

// SessionCost is the priced token total of one session
type SessionCost struct {
	SessionID       string      `json:"session_id"`
	Model           string      `json:"model"`
	Tier            string      `json:"tier"`
	PricingFallback bool        `json:"pricing_fallback"`
	Tokens          TokenCounts `json:"tokens"`
	TotalTokens     int64       `json:"total_tokens"`
	Cost            float64     `json:"cost"`
}

// TierCost prices all observed tokens at one tier
type TierCost struct {
	Tier string  `json:"tier"`
	Cost float64 `json:"cost"`
}

// TokenSlice holds token and cost aggregates
type TokenSlice struct {
	Totals       TokenCounts   `json:"totals"`
	TotalTokens  int64         `json:"total_tokens"`
	TotalCost    float64       `json:"total_cost"`
	CacheHitRate float64       `json:"cache_hit_rate"`
	Daily        []TokenBucket `json:"daily"`
	Weekly       []TokenBucket `json:"weekly"`
	Projects     []TokenBucket `json:"projects"`
	Models       []TokenBucket `json:"models"`
	Sessions     []SessionCost `json:"sessions"`
	WhatIf       []TierCost    `json:"what_if"`
}

// Tools

// ToolStat summarizes one tool
type ToolStat struct {
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	Results     int     `json:"results"`
	Failures    int     `json:"failures"`
	FailureRate float64 `json:"failure_rate"`
	Unmatched   int     `json:"unmatched"`
}

// ToolSlice ranks tool usage
type ToolSlice struct {
	TotalCalls       int        `json:"total_calls"`
	UniqueTools      int        `json:"unique_tools"`
	UnmatchedResults int        `json:"unmatched_results"`
	Tools            []ToolStat `json:"tools"`
}

// MCP

// MCPServer summarizes calls to one MCP server
type MCPServer struct {
	Calls      int            `json:"calls"`
	Failures   int            `json:"failures"`
	Configured bool           `json:"configured"`
	Tools      map[string]int `json:"tools"`
}

// MCPSlice attributes mcp__<server>__<tool> calls to servers
type MCPSlice struct {
	TotalCalls int                  `json:"total_calls"`
	Servers    map[string]MCPServer `json:"servers"`
	Configured []string             `json:"configured"`
	Unused     []string             `json:"unused"`
}

// Subagents

// SubagentStat summarizes Task invocations of one subagent type
type SubagentStat struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Completed  int     `json:"completed"`
	Incomplete int     `json:"incomplete"`
	Failures   int     `json:"failures"`
	TotalMs    int64   `json:"total_ms"`
	MeanMs     float64 `json:"mean_ms"`
	MinMs      int64   `json:"min_ms"`
	MaxMs      int64   `json:"max_ms"`
}

// SubagentSlice groups Task invocations by subagent type
type SubagentSlice struct {
	Total             int            `json:"total"`
	Completed         int            `json:"completed"`
	Incomplete        int            `json:"incomplete"`
	Untyped           int            `json:"untyped"`
	SidechainEvents   int            `json:"sidechain_events"`   // Events written by subagents
	SidechainSessions int            `json:"sidechain_sessions"` // Sessions with at least one such event
	Types             []SubagentStat `json:"types"`
}

// Time patterns

// TimePatternSlice buckets events by hour and weekday as stored
type TimePatternSlice struct {
	ByHour      [24]int `json:"by_hour"`
	ByWeekday   [7]int  `json:"by_weekday"` // Sunday = 0
	PeakHour    int     `json:"peak_hour"`    // -1 without events
	PeakWeekday int     `json:"peak_weekday"` // -1 without events
}

// Chains

// SequenceCount is one tool sequence and how often it occurred
type SequenceCount struct {
	Sequence string `json:"sequence"`
	Count    int    `json:"count"`
}

// ChainSlice holds consecutive tool pair and triple frequencies
type ChainSlice struct {
	UniqueBigrams     int             `json:"unique_bigrams"`
	UniqueTrigrams    int             `json:"unique_trigrams"`
	Bigrams           []SequenceCount `json:"bigrams"`
	Trigrams          []SequenceCount `json:"trigrams"`
	CollapsedBigrams  []SequenceCount `json:"collapsed_bigrams"`
	CollapsedTrigrams []SequenceCount `json:"collapsed_trigrams"`
}

// Errors

// ToolErrors counts failures and retries of one tool
type ToolErrors struct {
	Name     string `json:"name"`
	Failures int    `json:"failures"`
	Retries  int    `json:"retries"`
}

// SessionErrors counts problems of one session
type SessionErrors struct {
	SessionID string `json:"session_id"`
	Errors    int    `json:"errors"`
	Retries   int    `json:"retries"`
	APIErrors int    `json:"api_errors"`
}

// ErrorSlice summarizes failures, retries and API errors
type ErrorSlice struct {
	Failures    int             `json:"failures"`
	Retries     int             `json:"retries"`
	APIErrors   int             `json:"api_errors"`
	FailureRate float64         `json:"failure_rate"`
	RetryRate   float64         `json:"retry_rate"`
	ByTool      []ToolErrors    `json:"by_tool"`
	TopSessions []SessionErrors `json:"top_sessions"`
}

// Projects

// ProjectStat summarizes one project directory
type ProjectStat struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Sessions    int         `json:"sessions"`
	Events      int         `json:"events"`
	ToolCalls   int         `json:"tool_calls"`
	Tokens      TokenCounts `json:"tokens"`
	TotalTokens int64       `json:"total_tokens"`
	Cost        float64     `json:"cost"`
	FirstSeen   string      `json:"first_seen"`
	LastSeen    string      `json:"last_seen"`
}

// ProjectSlice ranks projects by tokens
type ProjectSlice struct {
	Projects []ProjectStat `json:"projects"`
}

// Sessions

// SessionSummary is the report view of one session
type SessionSummary struct {
	ID          string      `json:"id"`
	Project     string      `json:"project"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
	DurationMs  int64       `json:"duration_ms"`
	Events      int         `json:"events"`
	ToolCalls   int         `json:"tool_calls"`
	Tokens      TokenCounts `json:"tokens"`
	TotalTokens int64       `json:"total_tokens"`
	Model       string      `json:"model"`
	Cost        float64     `json:"cost"`
	Branches    []string    `json:"branches"`
	Errors      int         `json:"errors"`
	Retries     int         `json:"retries"`
}

// SessionSlice lists the largest sessions
type SessionSlice struct {
	Count          int              `json:"count"`
	TotalMs        int64            `json:"total_duration_ms"`
	MeanDurationMs float64          `json:"mean_duration_ms"`
	Top            []SessionSummary `json:"top"`
}

// Health

// HealthSlice holds the recommendations of the health engine
type HealthSlice struct {
	Counts          map[string]int   `json:"counts"`
	Recommendations []Recommendation `json:"recommendations"`
}

