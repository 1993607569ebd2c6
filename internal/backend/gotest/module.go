package gotest

import (
	"os"
	"path"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// findModule walks up from dir to the nearest go.mod and returns its directory
// and module path. Both are empty when dir is not inside a module.
func findModule(dir string) (moduleDir, modulePath string) {
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			return dir, modfile.ModulePath(data)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ""
		}
		dir = parent
	}
}

// importPath maps an absolute package directory to the import path go test
// reports in its events.
func (b *Backend) importPath(dir string) string {
	if b.moduleDir == "" || b.modulePath == "" {
		return b.relSlash(dir)
	}
	rel, err := filepath.Rel(b.moduleDir, dir)
	if err != nil || rel == "." {
		return b.modulePath
	}
	return path.Join(b.modulePath, filepath.ToSlash(rel))
}

// relSlash returns p relative to the project root in slash form.
func (b *Backend) relSlash(p string) string {
	rel, err := filepath.Rel(b.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func isNestedModule(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "go.mod"))
	return err == nil
}
