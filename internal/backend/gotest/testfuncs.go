package gotest

import (
	"go/ast"
	"go/doc"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// isTestName reports whether name is prefix followed by nothing or by a
// character that is not lower case, the rule go test applies.
func isTestName(name, prefix string) bool {
	if len(name) < len(prefix) || name[:len(prefix)] != prefix {
		return false
	}
	if len(name) == len(prefix) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return !unicode.IsLower(r)
}

// testingName returns the local name of the "testing" import in f. An empty
// result means the package is not imported; "." means a dot import.
func testingName(f *ast.File) string {
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != "testing" {
			continue
		}
		if imp.Name == nil {
			return "testing"
		}
		if imp.Name.Name == "_" {
			return ""
		}
		return imp.Name.Name
	}
	return ""
}

// takesTestingParam reports whether fn has the shape func(x *testing.<typ>)
// with no receiver, type parameters or results.
func takesTestingParam(fn *ast.FuncDecl, pkgName, typ string) bool {
	if pkgName == "" || fn.Recv != nil || fn.Type.TypeParams != nil {
		return false
	}
	if fn.Type.Results != nil && len(fn.Type.Results.List) > 0 {
		return false
	}
	params := fn.Type.Params.List
	if len(params) != 1 || len(params[0].Names) > 1 {
		return false
	}
	star, ok := params[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	switch x := star.X.(type) {
	case *ast.SelectorExpr:
		pkg, ok := x.X.(*ast.Ident)
		return ok && pkg.Name == pkgName && x.Sel.Name == typ
	case *ast.Ident:
		return pkgName == "." && x.Name == typ
	}
	return false
}

// testFunc is a recognized test function and its declaration line.
type testFunc struct {
	name string
	line int
}

// findTests returns the runnable Test, Fuzz and Example functions of f in
// declaration order. lineOf maps a declaration to its line.
func findTests(f *ast.File, lineOf func(*ast.FuncDecl) int) []testFunc {
	pkgName := testingName(f)

	runnableExamples := map[string]bool{}
	for _, ex := range doc.Examples(f) {
		if ex.Output != "" || ex.EmptyOutput {
			runnableExamples["Example"+ex.Name] = true
		}
	}

	var out []testFunc
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		name := fn.Name.Name
		switch {
		case name == "TestMain":
			continue
		case isTestName(name, "Test") && takesTestingParam(fn, pkgName, "T"):
		case isTestName(name, "Fuzz") && takesTestingParam(fn, pkgName, "F"):
		case isTestName(name, "Example") && runnableExamples[name]:
		default:
			continue
		}
		out = append(out, testFunc{name: name, line: lineOf(fn)})
	}
	return out
}
