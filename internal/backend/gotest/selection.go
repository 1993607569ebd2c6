package gotest

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"gotest-mcp/internal/backend"
)

// index is a full, unfiltered collection of the project used to resolve
// selections and to map events back to node ids. It is built with the same
// build tags as the go test invocations it plans.
type index struct {
	tests    []backend.CollectedTest
	byNodeID map[string]backend.CollectedTest
	byEvent  map[eventKey]string // (import path, function) -> node id
	pkgDirs  map[string]string   // import path -> package dir relative to root
	perPkg   map[string]int      // import path -> number of tests
}

type eventKey struct {
	pkg, test string
}

func (b *Backend) buildIndex(ctx context.Context, tags string) (*index, error) {
	col, err := b.collect(ctx, backend.CollectRequest{Path: b.root}, buildContext(tags))
	if err != nil {
		return nil, err
	}
	idx := &index{
		tests:    col.Tests,
		byNodeID: make(map[string]backend.CollectedTest, len(col.Tests)),
		byEvent:  make(map[eventKey]string, len(col.Tests)),
		pkgDirs:  map[string]string{},
		perPkg:   map[string]int{},
	}
	for _, t := range col.Tests {
		idx.byNodeID[t.NodeID] = t
		idx.byEvent[eventKey{t.Package, t.Function}] = t.NodeID
		idx.pkgDirs[t.Package] = path.Dir(t.File)
		idx.perPkg[t.Package]++
	}
	return idx, nil
}

// nodeIDFor maps a test2json (package, test) pair to a node id. Tests the
// static collection did not see get an id built from their package directory.
func (idx *index) nodeIDFor(pkg, test string) string {
	if id, ok := idx.byEvent[eventKey{pkg, test}]; ok {
		return id
	}
	if dir, ok := idx.pkgDirs[pkg]; ok {
		return nodeID(dir, test)
	}
	return nodeID(pkg, test)
}

// invocation is one `go test` process: the packages it covers and an optional
// -run expression restricting them.
type invocation struct {
	packages []string
	run      string
}

// planAll runs every package of the project.
func (b *Backend) planAll(idx *index) []invocation {
	if len(b.opts.ExcludeDirs) == 0 {
		return []invocation{{packages: []string{"./..."}}}
	}
	// ./... cannot express the configured excludes, so list the packages instead.
	var pkgs []string
	seen := map[string]bool{}
	for _, t := range idx.tests {
		if !seen[t.Package] {
			seen[t.Package] = true
			pkgs = append(pkgs, packageArg(idx.pkgDirs[t.Package]))
		}
	}
	if len(pkgs) == 0 {
		return nil
	}
	return []invocation{{packages: pkgs}}
}

// planSelection resolves node ids into invocations. Ids naming nothing that
// exists are returned as a *backend.SelectionError. An id naming an existing
// path with no tests selects nothing.
func (b *Backend) planSelection(idx *index, nodeIDs []string) ([]invocation, error) {
	selected := map[string]bool{}
	var unknown []string

	for _, raw := range nodeIDs {
		matched, ok := b.resolve(idx, raw)
		if !ok {
			unknown = append(unknown, raw)
			continue
		}
		for _, id := range matched {
			selected[id] = true
		}
	}
	if len(unknown) > 0 {
		return nil, &backend.SelectionError{Unknown: unknown}
	}

	// Group by package in collection order.
	var order []string
	names := map[string][]string{}
	for _, t := range idx.tests {
		if !selected[t.NodeID] {
			continue
		}
		if _, ok := names[t.Package]; !ok {
			order = append(order, t.Package)
		}
		names[t.Package] = append(names[t.Package], t.Function)
	}

	// Packages sharing the same -run expression share a process.
	var plans []invocation
	byRun := map[string]int{}
	for _, pkg := range order {
		run := ""
		if len(names[pkg]) < idx.perPkg[pkg] {
			run = runExpression(names[pkg])
		}
		i, ok := byRun[run]
		if !ok {
			i = len(plans)
			byRun[run] = i
			plans = append(plans, invocation{run: run})
		}
		plans[i].packages = append(plans[i].packages, packageArg(idx.pkgDirs[pkg]))
	}
	return plans, nil
}

// resolve expands one selector into node ids. The boolean is false when the
// selector names nothing that exists.
func (b *Backend) resolve(idx *index, raw string) ([]string, bool) {
	sel := normalizeSelector(raw)
	if sel == ".." || strings.HasPrefix(sel, "../") || path.IsAbs(sel) {
		return nil, false
	}

	if file, fn, ok := strings.Cut(sel, nodeSeparator); ok {
		t, found := idx.byNodeID[nodeID(file, fn)]
		if !found {
			return nil, false
		}
		return []string{t.NodeID}, true
	}

	recursive := false
	if sel == "..." {
		sel, recursive = ".", true
	} else if strings.HasSuffix(sel, "/...") {
		sel, recursive = strings.TrimSuffix(sel, "/..."), true
	}

	info, err := os.Stat(filepath.Join(b.root, filepath.FromSlash(sel)))
	if err != nil {
		return nil, false
	}

	var out []string
	for _, t := range idx.tests {
		switch {
		case !info.IsDir():
			if recursive {
				return nil, false
			}
			if t.File == sel {
				out = append(out, t.NodeID)
			}
		case recursive:
			if sel == "." || strings.HasPrefix(t.File, sel+"/") {
				out = append(out, t.NodeID)
			}
		default:
			if path.Dir(t.File) == sel {
				out = append(out, t.NodeID)
			}
		}
	}
	return out, true
}

func normalizeSelector(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	file, fn, hasFn := strings.Cut(s, nodeSeparator)
	file = path.Clean(file)
	if file == "./..." {
		file = "..."
	}
	if hasFn {
		return file + nodeSeparator + fn
	}
	return file
}

// packageArg turns a root-relative package directory into a go test argument.
func packageArg(dir string) string {
	if dir == "." || dir == "" {
		return "."
	}
	return "./" + dir
}

func runExpression(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return "^(" + strings.Join(quoted, "|") + ")$"
}
