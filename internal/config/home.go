package config

import (
	"os"
	"path/filepath"
)

// configNames are probed in order by FindConfigFile
var configNames = []string{".ccinsights.yaml", ".ccinsights.yml", ".ccinsights.toml"}

// ClaudeProjectsDir returns the default log root.
// Priority order:
//  1. CLAUDE_CONFIG_DIR environment variable (its projects subdirectory)
//  2. ~/.claude/projects
func ClaudeProjectsDir() string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "projects")
	}
	return filepath.Join("~", ".claude", "projects")
}

// FindConfigFile looks for a config file in dir, then in the home directory.
// It returns "" when none exists.
func FindConfigFile(dir string) string {
	dirs := []string{dir}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, d := range dirs {
		for _, name := range configNames {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}
