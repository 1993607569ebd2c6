// Package discovery turns the backend's collection phase into discover-tests responses.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/backend"
	"gotest-mcp/pkg/logging"
)

// Discoverer lists tests below a fixed project root. It holds no per-request
// state and is safe for concurrent use.
type Discoverer struct {
	root    string
	backend backend.Backend
}

// New returns a Discoverer for root, which must be absolute.
func New(root string, b backend.Backend) *Discoverer {
	return &Discoverer{root: filepath.Clean(root), backend: b}
}

// Discover resolves params.Path, collects tests below it and builds the response.
// A path that does not exist, or that leaves the root, is a *api.ValidationError.
func (d *Discoverer) Discover(ctx context.Context, params api.DiscoverTestsParams) (*api.DiscoverTestsResponse, error) {
	scope, err := d.resolvePath(params.Path)
	if err != nil {
		return nil, err
	}

	col, err := d.backend.Collect(ctx, backend.CollectRequest{Path: scope, Pattern: params.Pattern})
	if err != nil {
		return nil, fmt.Errorf("collecting tests: %w", err)
	}

	resp := &api.DiscoverTestsResponse{
		Tests:            make([]api.DiscoveredTest, 0, len(col.Tests)),
		CollectionErrors: make([]string, 0, len(col.Errors)),
	}
	seen := make(map[string]bool, len(col.Tests))
	for _, t := range col.Tests {
		if seen[t.NodeID] {
			logging.Debug("Discovery", "Dropping duplicate node id %s", t.NodeID)
			continue
		}
		seen[t.NodeID] = true
		resp.Tests = append(resp.Tests, toDiscovered(t))
	}
	for _, ce := range col.Errors {
		resp.CollectionErrors = append(resp.CollectionErrors, ce.String())
	}
	resp.Count = len(resp.Tests)

	logging.Info("Discovery", "Discovered %d tests (%d collection errors)", resp.Count, len(resp.CollectionErrors))
	return resp, nil
}

func toDiscovered(t backend.CollectedTest) api.DiscoveredTest {
	dt := api.DiscoveredTest{
		NodeID:   t.NodeID,
		Module:   t.Package,
		Function: t.Function,
		File:     t.File,
	}
	if t.Line > 0 {
		line := t.Line
		dt.Line = &line
	}
	return dt
}

// resolvePath maps a caller path onto the filesystem. Symlinks are resolved
// before the containment check.
func (d *Discoverer) resolvePath(p string) (string, error) {
	if p == "" {
		return d.root, nil
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", api.NewValidationError("path", "must not contain '..' segments")
		}
	}

	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(d.root, filepath.FromSlash(p))
	}
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", api.NewValidationError("path", "%s does not exist", p)
		}
		return "", api.NewValidationError("path", "cannot access %s: %v", p, err)
	}

	realRoot, err := filepath.EvalSymlinks(d.root)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	realTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", api.NewValidationError("path", "cannot resolve %s: %v", p, err)
	}
	rel, err := filepath.Rel(realRoot, realTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", api.NewValidationError("path", "%s is outside the project root", p)
	}
	return target, nil
}
