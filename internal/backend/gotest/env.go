package gotest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
)

// environment builds the environment for go test processes: the current
// process environment, then the dotenv file, then configured variables.
// Configured values are expanded against the environment.
func (b *Backend) environment() ([]string, error) {
	env := os.Environ()

	if b.opts.EnvFile != "" {
		file := b.opts.EnvFile
		if !filepath.IsAbs(file) {
			file = filepath.Join(b.root, file)
		}
		vars, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", file, err)
		}
		env = appendSorted(env, vars)
	}

	if len(b.opts.Env) > 0 {
		expanded := make(map[string]string, len(b.opts.Env))
		for k, v := range b.opts.Env {
			expanded[k] = os.ExpandEnv(v)
		}
		env = appendSorted(env, expanded)
	}
	return env, nil
}

// appendSorted appends vars in key order so later duplicates win deterministically.
func appendSorted(env []string, vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env
}
