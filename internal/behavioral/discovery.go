package behavioral

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInputNotFound is returned when the input root is missing or unreadable
var ErrInputNotFound = errors.New("input directory not found or unreadable")

// DefaultProject is the project of log files placed directly in the input root
const DefaultProject = "default"

const subagentsDir = "subagents"

// LogFile is one discovered .jsonl file
type LogFile struct {
	Path     string // Absolute path
	RelPath  string // Slash-separated path relative to the input root
	Project  string // First path segment below the root
	Size     int64
	Subagent bool // Lives below a subagents directory
}

// DiscoverLogFiles walks root in lexical order and returns every .jsonl file,
// including those in subagents directories. Unreadable subdirectories are
// logged and skipped; an unreadable root is fatal.
func DiscoverLogFiles(root string, log Logger) ([]LogFile, error) {
	log = orNop(log)

	// Expand ~ to home directory if present
	expanded, err := expandHomeDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand home directory: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputNotFound, root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputNotFound, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputNotFound, abs)
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputNotFound, abs, err)
	}

	var files []LogFile
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Log warning but continue traversal
			log.LogWarn(fmt.Sprintf("skipping %s: %v", path, err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			log.LogWarn(fmt.Sprintf("skipping %s: %v", path, err))
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.LogWarn(fmt.Sprintf("skipping %s: %v", path, err))
			return nil
		}

		rel = filepath.ToSlash(rel)
		files = append(files, LogFile{
			Path:     path,
			RelPath:  rel,
			Project:  projectOf(rel),
			Size:     info.Size(),
			Subagent: isSubagentPath(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory tree: %w", err)
	}
	return files, nil
}

// projectOf returns the first segment of a slash-separated relative path
func projectOf(rel string) string {
	first, _, found := strings.Cut(rel, "/")
	if !found {
		return DefaultProject
	}
	return first
}

func isSubagentPath(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == subagentsDir {
			return true
		}
	}
	return false
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
