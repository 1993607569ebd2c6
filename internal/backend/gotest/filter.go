package gotest

import (
	"path"
	"strings"

	"gotest-mcp/internal/backend"
)

// matchesPattern applies a discovery pattern to a collected test. A pattern
// containing glob metacharacters is matched with path.Match, anything else is
// a substring match. Candidates are the node id, the function name, the file
// path and the file's base name. An empty pattern matches everything.
func matchesPattern(t backend.CollectedTest, pattern string) bool {
	if pattern == "" {
		return true
	}
	candidates := []string{t.NodeID, t.Function, t.File, path.Base(t.File)}

	if strings.ContainsAny(pattern, "*?[") {
		for _, c := range candidates {
			if ok, err := path.Match(pattern, c); err == nil && ok {
				return true
			} else if err != nil {
				// malformed glob: fall back to a literal match
				return containsAny(candidates, pattern)
			}
		}
		return false
	}
	return containsAny(candidates, pattern)
}

func containsAny(candidates []string, substr string) bool {
	for _, c := range candidates {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}
