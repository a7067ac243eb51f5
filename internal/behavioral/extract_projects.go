package behavioral

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ProjectDisplayName derives a readable name for a project directory.
// The base of the recorded working directory wins; otherwise the last
// segment of a path slug such as -Users-me-code-app is used.
func ProjectDisplayName(slug, cwd string) string {
	if cwd = strings.TrimSpace(cwd); cwd != "" {
		if base := filepath.Base(filepath.Clean(cwd)); base != "." && base != string(filepath.Separator) {
			return base
		}
	}
	if strings.HasPrefix(slug, "-") {
		parts := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' })
		if len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}
	return slug
}

// ExtractProjects aggregates sessions per project, ranked by total tokens
func ExtractProjects(set *SessionSet) ProjectSlice {
	byName := make(map[string]*ProjectStat)
	first := make(map[string]time.Time)
	last := make(map[string]time.Time)

	for _, s := range set.Sessions() {
		st, ok := byName[s.Project]
		if !ok {
			st = &ProjectStat{Name: s.Project}
			byName[s.Project] = st
			first[s.Project] = s.Start
			last[s.Project] = s.End
		}
		if st.DisplayName == "" && s.Cwd != "" {
			st.DisplayName = ProjectDisplayName(s.Project, s.Cwd)
		}
		st.Sessions++
		st.Events += len(s.Events)
		st.ToolCalls += len(s.Tools)
		st.Tokens.Add(s.Tokens)
		st.Cost += s.Cost
		if s.Start.Before(first[s.Project]) {
			first[s.Project] = s.Start
		}
		if s.End.After(last[s.Project]) {
			last[s.Project] = s.End
		}
	}

	slice := ProjectSlice{Projects: make([]ProjectStat, 0, len(byName))}
	for name, st := range byName {
		if st.DisplayName == "" {
			st.DisplayName = ProjectDisplayName(name, "")
		}
		st.TotalTokens = st.Tokens.Total()
		st.FirstSeen = formatTime(first[name])
		st.LastSeen = formatTime(last[name])
		slice.Projects = append(slice.Projects, *st)
	}
	sort.Slice(slice.Projects, func(i, j int) bool {
		a, b := slice.Projects[i], slice.Projects[j]
		if a.TotalTokens != b.TotalTokens {
			return a.TotalTokens > b.TotalTokens
		}
		return a.Name < b.Name
	})
	return slice
}

// ExtractSessions lists the topN sessions by total tokens
func ExtractSessions(set *SessionSet, topN int) SessionSlice {
	slice := SessionSlice{Count: set.Len(), Top: []SessionSummary{}}
	for _, s := range set.Sessions() {
		ms := s.Duration().Milliseconds()
		slice.TotalMs += ms
		branches := s.Branches
		if branches == nil {
			branches = []string{}
		}
		slice.Top = append(slice.Top, SessionSummary{
			ID:          s.ID,
			Project:     s.Project,
			Start:       formatTime(s.Start),
			End:         formatTime(s.End),
			DurationMs:  ms,
			Events:      len(s.Events),
			ToolCalls:   len(s.Tools),
			Tokens:      s.Tokens,
			TotalTokens: s.Tokens.Total(),
			Model:       s.Model,
			Cost:        s.Cost,
			Branches:    branches,
			Errors:      s.ErrorCount,
			Retries:     s.RetryCount,
		})
	}
	if slice.Count > 0 {
		slice.MeanDurationMs = float64(slice.TotalMs) / float64(slice.Count)
	}
	sort.Slice(slice.Top, func(i, j int) bool {
		a, b := slice.Top[i], slice.Top[j]
		if a.TotalTokens != b.TotalTokens {
			return a.TotalTokens > b.TotalTokens
		}
		return a.ID < b.ID
	})
	slice.Top = truncate(slice.Top, topN)
	return slice
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
