package behavioral

import "errors"

// syntheticModel marks placeholder assistant messages that were never sent to a model
const syntheticModel = "<synthetic>"

// ErrAggregatorFinalized is returned by Add after Finalize
var ErrAggregatorFinalized = errors.New("aggregator already finalized")

// Aggregator groups events into sessions in a single pass
type Aggregator struct {
	pricing   *PricingTable
	builders  map[string]*sessionBuilder
	finalized *SessionSet
}

// sessionBuilder holds the mutable state of one session under construction
type sessionBuilder struct {
	session    *Session
	branches   map[string]bool
	callByID   map[string]int // tool_use id -> index in session.Tools
	open       []int          // indices of calls still waiting for a result, arrival order
	modelOrder map[string]int // model -> first occurrence
	usageByMsg map[string]int // message id -> index in session.Events of the copy holding its usage
	prev       []string       // last two tool names for chain counting
}

// NewAggregator creates an aggregator that prices sessions with table
func NewAggregator(table *PricingTable) *Aggregator {
	if table == nil {
		table = DefaultPricingTable()
	}
	return &Aggregator{
		pricing:  table,
		builders: make(map[string]*sessionBuilder),
	}
}

// Add folds one event into its session, creating the session on first sight
func (a *Aggregator) Add(ev Event) error {
	if a.finalized != nil {
		return ErrAggregatorFinalized
	}
	if ev.SessionID == "" {
		return errors.New("event has no session id")
	}

	b, ok := a.builders[ev.SessionID]
	if !ok {
		b = newSessionBuilder(ev)
		a.builders[ev.SessionID] = b
	}
	b.add(ev)
	return nil
}

// Finalize computes derived per-session values and returns the read-only set.
// Calling it again returns the same set.
func (a *Aggregator) Finalize() *SessionSet {
	if a.finalized != nil {
		return a.finalized
	}
	sessions := make(map[string]*Session, len(a.builders))
	for id, b := range a.builders {
		s := b.session
		s.Tokens = TokenCounts{}
		for i := range s.Events {
			s.Tokens.Add(s.Events[i].Tokens())
		}
		s.Model = dominantModel(s.ModelCounts, b.modelOrder)
		tier, fellBack := a.pricing.Resolve(s.Model)
		s.Tier = tier.Name
		s.PricingFallback = fellBack
		s.Cost = tier.Cost(s.Tokens)
		sessions[id] = s
	}
	a.builders = nil
	a.finalized = newSessionSet(sessions)
	return a.finalized
}

func newSessionBuilder(ev Event) *sessionBuilder {
	return &sessionBuilder{
		session: &Session{
			ID:          ev.SessionID,
			Project:     ev.Project,
			Cwd:         ev.Cwd,
			Start:       ev.Timestamp,
			End:         ev.Timestamp,
			ModelCounts: make(map[string]int),
			Bigrams:     make(map[string]int),
			Trigrams:    make(map[string]int),
		},
		branches:   make(map[string]bool),
		callByID:   make(map[string]int),
		modelOrder: make(map[string]int),
		usageByMsg: make(map[string]int),
	}
}

func (b *sessionBuilder) add(ev Event) {
	s := b.session

	if ev.Timestamp.Before(s.Start) {
		s.Start = ev.Timestamp
	}
	if ev.Timestamp.After(s.End) {
		s.End = ev.Timestamp
	}
	if s.Cwd == "" {
		s.Cwd = ev.Cwd
	}
	if s.Project == "" {
		s.Project = ev.Project
	}
	if ev.GitBranch != "" && !b.branches[ev.GitBranch] {
		b.branches[ev.GitBranch] = true
		s.Branches = append(s.Branches, ev.GitBranch)
	}
	if ev.Model != "" && ev.Model != syntheticModel {
		if _, seen := b.modelOrder[ev.Model]; !seen {
			b.modelOrder[ev.Model] = len(b.modelOrder)
		}
		s.ModelCounts[ev.Model]++
	}

	if ev.Sidechain {
		s.SidechainEvents++
	}
	if ev.APIError {
		s.APIErrorCount++
		s.ErrorCount++
	}

	switch ev.Kind {
	case KindToolUse:
		b.addCall(ev)
	case KindToolResult:
		ev = b.completeCall(ev)
	}

	ev = b.mergeUsage(ev)
	s.Events = append(s.Events, ev)
}

// mergeUsage keeps one usage per message id. Streamed copies of a message
// repeat its usage block, sometimes with growing counts; the copies merge
// into the per-category maximum, held by the earliest copy by timestamp,
// file and line. The result does not depend on arrival order.
func (b *sessionBuilder) mergeUsage(ev Event) Event {
	if ev.Usage == nil || ev.MessageID == "" {
		return ev
	}
	s := b.session
	idx, seen := b.usageByMsg[ev.MessageID]
	if !seen {
		b.usageByMsg[ev.MessageID] = len(s.Events)
		return ev
	}

	s.DuplicateUsage++
	holder := &s.Events[idx]
	merged := holder.Tokens().Max(ev.Tokens())
	if earlierEvent(&ev, holder) {
		holder.Usage = nil
		ev.Usage = &merged
		b.usageByMsg[ev.MessageID] = len(s.Events)
		return ev
	}
	holder.Usage = &merged
	ev.Usage = nil
	return ev
}

func earlierEvent(a, b *Event) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.File != b.File {
		return a.File < b.File
	}
	return a.Line < b.Line
}

func (b *sessionBuilder) addCall(ev Event) {
	s := b.session
	if ev.ToolUseID != "" {
		if _, dup := b.callByID[ev.ToolUseID]; dup {
			// Same tool_use replayed in another file of the session
			return
		}
	}

	call := ToolCall{
		Name:      ev.ToolName,
		ID:        ev.ToolUseID,
		Input:     ev.ToolInput,
		StartedAt: ev.Timestamp,
	}
	if n := len(s.Tools); n > 0 {
		last := s.Tools[n-1]
		call.Retry = last.Failed && last.Name == call.Name
	}
	if call.Retry {
		s.RetryCount++
	}

	idx := len(s.Tools)
	s.Tools = append(s.Tools, call)
	if call.ID != "" {
		b.callByID[call.ID] = idx
	}
	b.open = append(b.open, idx)
	b.recordChain(call.Name)
}

// completeCall matches a result to its call by id, or to the first open call
// when the result carries no id. It returns the event as it is recorded.
func (b *sessionBuilder) completeCall(ev Event) Event {
	s := b.session
	if ev.IsError {
		s.ErrorCount++
	}

	idx := -1
	if ev.ToolUseID != "" {
		if i, ok := b.callByID[ev.ToolUseID]; ok {
			if s.Tools[i].Completed {
				// Duplicate result, the call keeps its first outcome
				ev.ToolName = s.Tools[i].Name
				ev.Unmatched = false
				return ev
			}
			idx = i
		}
	} else if len(b.open) > 0 {
		idx = b.open[0]
	}

	if idx < 0 {
		ev.ToolName = UnknownTool
		ev.Unmatched = true
		s.UnmatchedResults++
		return ev
	}

	call := &s.Tools[idx]
	call.Completed = true
	call.CompletedAt = ev.Timestamp
	call.Failed = ev.IsError
	b.closeCall(idx)

	ev.ToolName = call.Name
	ev.Unmatched = false
	return ev
}

func (b *sessionBuilder) closeCall(idx int) {
	for i, open := range b.open {
		if open == idx {
			b.open = append(b.open[:i], b.open[i+1:]...)
			return
		}
	}
}

func (b *sessionBuilder) recordChain(name string) {
	s := b.session
	switch len(b.prev) {
	case 2:
		s.Trigrams[sequenceKey(b.prev[0], b.prev[1], name)]++
		fallthrough
	case 1:
		s.Bigrams[sequenceKey(b.prev[len(b.prev)-1], name)]++
	}
	b.prev = append(b.prev, name)
	if len(b.prev) > 2 {
		b.prev = b.prev[len(b.prev)-2:]
	}
}

// dominantModel picks the most frequent model, ties broken by first occurrence
func dominantModel(counts map[string]int, order map[string]int) string {
	best := ""
	for model, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && order[model] < order[best]) {
			best = model
		}
	}
	return best
}
