package behavioral

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Role identifies who produced a log record
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind identifies the semantic action carried by an Event
type Kind string

const (
	KindText       Kind = "text"
	KindToolUse    Kind = "tool_use"
	KindToolResult Kind = "tool_result"
)

// UnknownTool is the tool name given to results that cannot be matched to a tool_use
const UnknownTool = "unknown"

// TokenCounts holds the four token categories reported in a usage block
type TokenCounts struct {
	Input         int64 `json:"input"`
	Output        int64 `json:"output"`
	CacheRead     int64 `json:"cache_read"`
	CacheCreation int64 `json:"cache_creation"`
}

// Add accumulates other into t
func (t *TokenCounts) Add(other TokenCounts) {
	t.Input += other.Input
	t.Output += other.Output
	t.CacheRead += other.CacheRead
	t.CacheCreation += other.CacheCreation
}

// Max returns the per-category maximum of t and other
func (t TokenCounts) Max(other TokenCounts) TokenCounts {
	return TokenCounts{
		Input:         max(t.Input, other.Input),
		Output:        max(t.Output, other.Output),
		CacheRead:     max(t.CacheRead, other.CacheRead),
		CacheCreation: max(t.CacheCreation, other.CacheCreation),
	}
}

// Total returns the sum of all four categories
func (t TokenCounts) Total() int64 {
	return t.Input + t.Output + t.CacheRead + t.CacheCreation
}

// IsZero reports whether no tokens were counted
func (t TokenCounts) IsZero() bool {
	return t == TokenCounts{}
}

// Validate checks that no category is negative
func (t TokenCounts) Validate() error {
	if t.Input < 0 || t.Output < 0 || t.CacheRead < 0 || t.CacheCreation < 0 {
		return errors.New("token counts must be non-negative")
	}
	return nil
}

// Event is one semantic action extracted from a log line.
// Events are built by the Parser. The Aggregator only moves the usage of a
// message that appears on several lines onto one of its copies.
type Event struct {
	SessionID string         // Session the event belongs to
	Timestamp time.Time      // Parsed record timestamp, offset as stored
	Role      Role           // user or assistant
	Kind      Kind           // text, tool_use or tool_result
	ToolName  string         // Tool name for tool_use, resolved name for tool_result
	ToolInput map[string]any // Raw tool_use input
	ToolUseID string         // Correlates tool_use and tool_result
	MessageID string         // message.id, shared by streamed copies of one message
	Usage     *TokenCounts   // Token usage, nil when not attached to this event
	GitBranch string
	Cwd       string
	Model     string
	Project   string // First path segment below the input root
	IsError   bool   // tool_result classified as a failure
	Unmatched bool   // tool_result without a preceding tool_use
	Sidechain bool   // Record written by a subagent
	APIError  bool   // Record flagged as an API error message
	File      string // Source file, relative to the input root
	Line      int    // 1-based line number in File
}

// Tokens returns the event usage or zero counts
func (e *Event) Tokens() TokenCounts {
	if e.Usage == nil {
		return TokenCounts{}
	}
	return *e.Usage
}

// ToolCall is one tool invocation in a session together with its matched result
type ToolCall struct {
	Name        string
	ID          string
	Input       map[string]any
	StartedAt   time.Time
	CompletedAt time.Time
	Completed   bool // A tool_result was matched to this call
	Failed      bool // The matched result was classified as a failure
	Retry       bool // Same tool as the previous call, which failed
}

// Duration returns the time between the call and its result, zero when incomplete
func (c *ToolCall) Duration() time.Duration {
	if !c.Completed || c.CompletedAt.Before(c.StartedAt) {
		return 0
	}
	return c.CompletedAt.Sub(c.StartedAt)
}

// SubagentType returns the subagent_type input of a Task call, if any
func (c *ToolCall) SubagentType() (string, bool) {
	if c.Name != "Task" || c.Input == nil {
		return "", false
	}
	v, ok := c.Input["subagent_type"].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Session aggregates all events that share a session id
type Session struct {
	ID               string
	Project          string
	Cwd              string
	Branches         []string // Unique, in first-seen order
	Start            time.Time
	End              time.Time
	Events           []Event    // Arrival order
	Tools            []ToolCall // Arrival order
	Tokens           TokenCounts
	Model            string         // Dominant model
	ModelCounts      map[string]int // Events per model
	Cost             float64        // Cost of Tokens at the dominant model tier
	Tier             string         // Pricing tier used for Cost
	PricingFallback  bool           // Tier is the default because the model was unknown
	ErrorCount       int            // Failed tool results plus API errors
	RetryCount       int
	APIErrorCount    int
	UnmatchedResults int
	DuplicateUsage   int // Lines whose usage repeated an earlier copy of their message
	SidechainEvents  int // Events written by subagents
	Bigrams          map[string]int
	Trigrams         map[string]int
}

// Duration returns End - Start, zero for single event sessions
func (s *Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// ToolCounts returns invocation counts by tool name
func (s *Session) ToolCounts() map[string]int {
	counts := make(map[string]int, len(s.Tools))
	for i := range s.Tools {
		counts[s.Tools[i].Name]++
	}
	return counts
}

// Validate checks the structural invariants of a finalized session
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session ID is required")
	}
	if len(s.Events) == 0 {
		return errors.New("session has no events")
	}
	if s.End.Before(s.Start) {
		return errors.New("session end precedes start")
	}
	return s.Tokens.Validate()
}

// SessionSet is the finalized, read-only collection of sessions of a run
type SessionSet struct {
	sessions []*Session
	byID     map[string]*Session
}

func newSessionSet(byID map[string]*Session) *SessionSet {
	set := &SessionSet{
		sessions: make([]*Session, 0, len(byID)),
		byID:     byID,
	}
	for _, s := range byID {
		set.sessions = append(set.sessions, s)
	}
	sort.Slice(set.sessions, func(i, j int) bool {
		return set.sessions[i].ID < set.sessions[j].ID
	})
	return set
}

// Len returns the number of sessions
func (s *SessionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sessions)
}

// Get returns the session with the given id
func (s *SessionSet) Get(id string) (*Session, bool) {
	if s == nil {
		return nil, false
	}
	sess, ok := s.byID[id]
	return sess, ok
}

// Sessions returns all sessions sorted by id. Callers must not modify them.
func (s *SessionSet) Sessions() []*Session {
	if s == nil {
		return nil
	}
	return s.sessions
}

// EventCount returns the number of events across all sessions
func (s *SessionSet) EventCount() int {
	n := 0
	for _, sess := range s.Sessions() {
		n += len(sess.Events)
	}
	return n
}

// DuplicateUsage returns the number of repeated message usages across sessions
func (s *SessionSet) DuplicateUsage() int {
	n := 0
	for _, sess := range s.Sessions() {
		n += sess.DuplicateUsage
	}
	return n
}

// Validate checks every session of the set
func (s *SessionSet) Validate() error {
	for _, sess := range s.Sessions() {
		if err := sess.Validate(); err != nil {
			return fmt.Errorf("session %s: %w", sess.ID, err)
		}
	}
	return nil
}

// DateRange returns the earliest start and latest end across sessions
func (s *SessionSet) DateRange() (time.Time, time.Time) {
	var first, last time.Time
	for i, sess := range s.Sessions() {
		if i == 0 || sess.Start.Before(first) {
			first = sess.Start
		}
		if i == 0 || sess.End.After(last) {
			last = sess.End
		}
	}
	return first, last
}
