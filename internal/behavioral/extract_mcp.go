package behavioral

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

const mcpPrefix = "mcp__"

// ParseMCPToolName splits mcp__<server>__<tool>. ok is false for other names.
func ParseMCPToolName(name string) (server, tool string, ok bool) {
	rest, found := strings.CutPrefix(name, mcpPrefix)
	if !found {
		return "", "", false
	}
	server, tool, found = strings.Cut(rest, "__")
	if !found || server == "" || tool == "" {
		return "", "", false
	}
	return server, tool, true
}

// ExtractMCP attributes MCP tool calls to their servers and lists configured
// servers that were never called
func ExtractMCP(set *SessionSet, configured []string) MCPSlice {
	slice := MCPSlice{
		Servers:    make(map[string]MCPServer),
		Configured: normalizeServers(configured),
		Unused:     []string{},
	}

	for _, s := range set.Sessions() {
		for i := range s.Tools {
			call := &s.Tools[i]
			server, tool, ok := ParseMCPToolName(call.Name)
			if !ok {
				continue
			}
			srv, seen := slice.Servers[server]
			if !seen {
				srv = MCPServer{Tools: make(map[string]int)}
			}
			srv.Calls++
			srv.Tools[tool]++
			if call.Failed {
				srv.Failures++
			}
			slice.Servers[server] = srv
			slice.TotalCalls++
		}
	}

	for _, name := range slice.Configured {
		srv, seen := slice.Servers[name]
		if !seen {
			slice.Unused = append(slice.Unused, name)
			continue
		}
		srv.Configured = true
		slice.Servers[name] = srv
	}
	return slice
}

func normalizeServers(names []string) []string {
	cleaned := lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != ""
	})
	cleaned = lo.Uniq(cleaned)
	sort.Strings(cleaned)
	return cleaned
}
