package behavioral

import "sort"

// ExtractSubagents groups Task invocations by subagent_type. Duration stats
// cover matched invocations only; the rest are counted as incomplete.
// Records flagged isSidechain are counted separately.
func ExtractSubagents(set *SessionSet) SubagentSlice {
	slice := SubagentSlice{Types: []SubagentStat{}}
	byType := make(map[string]*SubagentStat)

	for _, s := range set.Sessions() {
		if s.SidechainEvents > 0 {
			slice.SidechainEvents += s.SidechainEvents
			slice.SidechainSessions++
		}
		for i := range s.Tools {
			call := &s.Tools[i]
			if call.Name != "Task" {
				continue
			}
			kind, ok := call.SubagentType()
			if !ok {
				slice.Untyped++
				continue
			}
			st, seen := byType[kind]
			if !seen {
				st = &SubagentStat{Type: kind}
				byType[kind] = st
			}
			st.Count++
			slice.Total++

			if !call.Completed {
				st.Incomplete++
				slice.Incomplete++
				continue
			}
			if call.Failed {
				st.Failures++
			}
			ms := call.Duration().Milliseconds()
			if st.Completed == 0 || ms < st.MinMs {
				st.MinMs = ms
			}
			if ms > st.MaxMs {
				st.MaxMs = ms
			}
			st.TotalMs += ms
			st.Completed++
			slice.Completed++
		}
	}

	for _, st := range byType {
		if st.Completed > 0 {
			st.MeanMs = float64(st.TotalMs) / float64(st.Completed)
		}
		slice.Types = append(slice.Types, *st)
	}
	sort.Slice(slice.Types, func(i, j int) bool {
		a, b := slice.Types[i], slice.Types[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Type < b.Type
	})
	return slice
}
