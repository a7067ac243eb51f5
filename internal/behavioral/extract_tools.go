package behavioral

import (
	"sort"

	"github.com/samber/lo"
)

// ExtractTools counts invocations and failures per tool.
// Results that matched no tool_use are attributed to UnknownTool.
func ExtractTools(set *SessionSet) ToolSlice {
	stats := make(map[string]*ToolStat)
	get := func(name string) *ToolStat {
		st, ok := stats[name]
		if !ok {
			st = &ToolStat{Name: name}
			stats[name] = st
		}
		return st
	}

	slice := ToolSlice{Tools: []ToolStat{}}
	for _, s := range set.Sessions() {
		for i := range s.Tools {
			call := &s.Tools[i]
			st := get(call.Name)
			st.Count++
			if call.Completed {
				st.Results++
			}
			if call.Failed {
				st.Failures++
			}
		}
		for i := range s.Events {
			ev := &s.Events[i]
			if ev.Kind != KindToolResult || !ev.Unmatched {
				continue
			}
			st := get(UnknownTool)
			st.Count++
			st.Results++
			st.Unmatched++
			if ev.IsError {
				st.Failures++
			}
		}
		slice.TotalCalls += len(s.Tools)
		slice.UnmatchedResults += s.UnmatchedResults
	}

	for _, st := range stats {
		st.FailureRate = ratio(st.Failures, st.Results)
		slice.Tools = append(slice.Tools, *st)
	}
	sort.Slice(slice.Tools, func(i, j int) bool {
		a, b := slice.Tools[i], slice.Tools[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	slice.UniqueTools = len(lo.Filter(slice.Tools, func(st ToolStat, _ int) bool {
		return st.Name != UnknownTool
	}))
	return slice
}

// ExtractErrors summarizes failed results, retries and API errors.
// topN bounds the session ranking; zero or less keeps every session.
func ExtractErrors(set *SessionSet, topN int) ErrorSlice {
	slice := ErrorSlice{
		ByTool:      []ToolErrors{},
		TopSessions: []SessionErrors{},
	}
	byTool := make(map[string]*ToolErrors)
	get := func(name string) *ToolErrors {
		te, ok := byTool[name]
		if !ok {
			te = &ToolErrors{Name: name}
			byTool[name] = te
		}
		return te
	}

	calls, results := 0, 0
	for _, s := range set.Sessions() {
		for i := range s.Tools {
			call := &s.Tools[i]
			calls++
			if call.Completed {
				results++
			}
			if call.Failed {
				get(call.Name).Failures++
				slice.Failures++
			}
			if call.Retry {
				get(call.Name).Retries++
				slice.Retries++
			}
		}
		for i := range s.Events {
			ev := &s.Events[i]
			if ev.Kind == KindToolResult && ev.Unmatched {
				results++
				if ev.IsError {
					get(UnknownTool).Failures++
					slice.Failures++
				}
			}
		}
		slice.APIErrors += s.APIErrorCount

		if s.ErrorCount > 0 || s.RetryCount > 0 {
			slice.TopSessions = append(slice.TopSessions, SessionErrors{
				SessionID: s.ID,
				Errors:    s.ErrorCount,
				Retries:   s.RetryCount,
				APIErrors: s.APIErrorCount,
			})
		}
	}

	slice.FailureRate = ratio(slice.Failures, results)
	slice.RetryRate = ratio(slice.Retries, calls)

	for _, te := range byTool {
		slice.ByTool = append(slice.ByTool, *te)
	}
	sort.Slice(slice.ByTool, func(i, j int) bool {
		a, b := slice.ByTool[i], slice.ByTool[j]
		if a.Failures != b.Failures {
			return a.Failures > b.Failures
		}
		if a.Retries != b.Retries {
			return a.Retries > b.Retries
		}
		return a.Name < b.Name
	})

	sort.Slice(slice.TopSessions, func(i, j int) bool {
		a, b := slice.TopSessions[i], slice.TopSessions[j]
		if a.Errors != b.Errors {
			return a.Errors > b.Errors
		}
		if a.Retries != b.Retries {
			return a.Retries > b.Retries
		}
		return a.SessionID < b.SessionID
	})
	slice.TopSessions = truncate(slice.TopSessions, topN)
	return slice
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func truncate[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
