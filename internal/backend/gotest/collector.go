package gotest

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/build"
	"go/parser"
	"go/scanner"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"gotest-mcp/internal/backend"
	"gotest-mcp/pkg/logging"
)

type parsedFile struct {
	tests []backend.CollectedTest
	err   *backend.CollectionError
}

// Collect implements backend.Backend. Build constraints are evaluated with
// the configured tags.
func (b *Backend) Collect(ctx context.Context, req backend.CollectRequest) (*backend.Collection, error) {
	return b.collect(ctx, req, buildContext(b.opts.Tags))
}

func (b *Backend) collect(ctx context.Context, req backend.CollectRequest, bctx build.Context) (*backend.Collection, error) {
	scope := req.Path
	if scope == "" {
		scope = b.root
	}

	files, walkErrs, err := b.testFiles(scope, bctx)
	if err != nil {
		return nil, err
	}

	parsed := make([]parsedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = b.parseFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	col := &backend.Collection{
		Tests:  []backend.CollectedTest{},
		Errors: walkErrs,
	}
	for _, p := range parsed {
		if p.err != nil {
			col.Errors = append(col.Errors, *p.err)
			continue
		}
		for _, t := range p.tests {
			if matchesPattern(t, req.Pattern) {
				col.Tests = append(col.Tests, t)
			}
		}
	}
	logging.Debug("Collector", "Collected %d tests from %d files under %s (%d errors)", len(col.Tests), len(files), b.relSlash(scope), len(col.Errors))
	return col, nil
}

// testFiles lists the _test.go files go test would compile below scope, in
// lexical order. Files whose build constraints cannot be evaluated are
// reported as collection errors.
func (b *Backend) testFiles(scope string, bctx build.Context) ([]string, []backend.CollectionError, error) {
	info, err := os.Stat(scope)
	if err != nil {
		return nil, nil, err
	}

	var (
		files []string
		errs  []backend.CollectionError
	)
	consider := func(path string) {
		dir, name := filepath.Split(path)
		if !strings.HasSuffix(name, "_test.go") || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			return
		}
		ok, err := bctx.MatchFile(dir, name)
		if err != nil {
			errs = append(errs, backend.CollectionError{File: b.relSlash(path), Message: err.Error()})
			return
		}
		if ok {
			files = append(files, path)
		}
	}

	if !info.IsDir() {
		consider(scope)
		return files, errs, nil
	}

	err = filepath.WalkDir(scope, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == scope {
				return err
			}
			errs = append(errs, backend.CollectionError{File: b.relSlash(path), Message: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != scope && b.skipDir(path, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			consider(path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return files, errs, nil
}

// skipDir mirrors the directories the ./... pattern ignores, plus configured excludes.
func (b *Backend) skipDir(path, name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || b.excludes[name] {
		return true
	}
	return path != b.moduleDir && isNestedModule(path)
}

func (b *Backend) parseFile(path string) parsedFile {
	rel := b.relSlash(path)
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return parsedFile{err: &backend.CollectionError{File: rel, Message: parseMessage(err)}}
	}

	pkg := b.importPath(filepath.Dir(path))
	lineOf := func(fn *ast.FuncDecl) int { return fset.Position(fn.Pos()).Line }

	var tests []backend.CollectedTest
	for _, fn := range findTests(f, lineOf) {
		tests = append(tests, backend.CollectedTest{
			NodeID:   nodeID(rel, fn.name),
			Package:  pkg,
			Function: fn.name,
			File:     rel,
			Line:     fn.line,
		})
	}
	return parsedFile{tests: tests}
}

// parseMessage renders a parser error without the absolute file name.
func parseMessage(err error) string {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		msg := fmt.Sprintf("%d:%d: %s", first.Pos.Line, first.Pos.Column, first.Msg)
		if len(list) > 1 {
			msg += fmt.Sprintf(" (and %d more errors)", len(list)-1)
		}
		return msg
	}
	return err.Error()
}

func nodeID(file, function string) string {
	return file + nodeSeparator + function
}

const nodeSeparator = "::"
