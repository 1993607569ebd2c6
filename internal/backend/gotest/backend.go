// Package gotest implements backend.Backend with the go toolchain.
//
// Collection is static: _test.go files are parsed with go/parser and test
// functions are recognized the way go test recognizes them, without building
// anything. Runs shell out to `go test -json` and fold the test2json event
// stream back into per-test results keyed by node id.
//
// Node ids have the form <file>::<Func>, where <file> is the slash-separated
// path of the test file relative to the project root.
package gotest

import (
	"fmt"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gotest-mcp/internal/backend"
)

// Options configures a Backend.
type Options struct {
	Root           string
	GoBinary       string
	EnvFile        string
	Env            map[string]string
	ExcludeDirs    []string
	DefaultTimeout time.Duration
	DisableCache   bool
	Race           bool
	Tags           string
}

// Backend collects and runs the tests of one Go project.
type Backend struct {
	opts       Options
	root       string
	moduleDir  string
	modulePath string
	excludes   map[string]bool
}

var _ backend.Backend = (*Backend)(nil)

// New validates opts and returns a Backend rooted at opts.Root.
func New(opts Options) (*Backend, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}
	if opts.GoBinary == "" {
		opts.GoBinary = "go"
	}

	b := &Backend{
		opts:     opts,
		root:     root,
		excludes: map[string]bool{"testdata": true, "vendor": true},
	}
	for _, dir := range opts.ExcludeDirs {
		b.excludes[dir] = true
	}
	b.moduleDir, b.modulePath = findModule(root)
	return b, nil
}

// effectiveTags is the -tags value a run uses: the request's tags, else the configured ones.
func (b *Backend) effectiveTags(requested string) string {
	if requested != "" {
		return requested
	}
	return b.opts.Tags
}

// buildContext evaluates build constraints the way go test does with -tags=tags.
func buildContext(tags string) build.Context {
	ctx := build.Default
	if tags != "" {
		ctx.BuildTags = append(append([]string(nil), build.Default.BuildTags...), strings.Split(tags, ",")...)
	}
	return ctx
}

// Root returns the absolute project root.
func (b *Backend) Root() string {
	return b.root
}
