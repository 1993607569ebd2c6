package api

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Kind selects which parameter object a raw argument map is parsed into.
// The values double as the advertised tool names.
type Kind string

const (
	KindDiscoverTests Kind = "discover-tests"
	KindExecuteTests  Kind = "execute-tests"
)

// Accepted argument keys, in the order they are advertised.
var (
	DiscoverTestsFields = []string{"path", "pattern"}
	ExecuteTestsFields  = []string{"node_ids", "failfast", "timeout", "run", "skip", "short", "race", "tags", "show_capture"}
)

// Params is implemented by every typed parameter object.
type Params interface {
	Kind() Kind
}

// DiscoverTestsParams requests an enumeration of tests.
// An empty Path means the project root.
type DiscoverTestsParams struct {
	Path    string
	Pattern string
}

func (DiscoverTestsParams) Kind() Kind { return KindDiscoverTests }

// ExecuteTestsParams requests a test run.
//
// NodeIDs nil means run everything discoverable, while a non-nil empty slice
// means run nothing.
type ExecuteTestsParams struct {
	NodeIDs     []string
	FailFast    bool
	Timeout     time.Duration // zero uses the configured default
	Run         string
	Skip        string
	Short       bool
	Race        bool
	Tags        string
	ShowCapture bool
}

func (ExecuteTestsParams) Kind() Kind { return KindExecuteTests }

// Parse validates raw and returns the typed parameters for kind. The
// returned Params is nil whenever err is not.
func Parse(kind Kind, raw map[string]any) (Params, error) {
	var (
		p   Params
		err error
	)
	switch kind {
	case KindDiscoverTests:
		p, err = ParseDiscoverTestsParams(raw)
	case KindExecuteTests:
		p, err = ParseExecuteTestsParams(raw)
	default:
		err = fmt.Errorf("unknown parameter kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ParseDiscoverTestsParams validates a discover-tests argument map.
func ParseDiscoverTestsParams(raw map[string]any) (DiscoverTestsParams, error) {
	var (
		p    DiscoverTestsParams
		errs fieldErrors
	)
	for key, value := range raw {
		if value == nil {
			if !contains(DiscoverTestsFields, key) {
				errs.add(key, "unknown field")
			}
			continue
		}
		switch key {
		case "path":
			s, ok := value.(string)
			if !ok {
				errs.add(key, "expected string, got %s", typeName(value))
				continue
			}
			if hasParentSegment(s) {
				errs.add(key, "must not contain '..' segments")
				continue
			}
			p.Path = s
		case "pattern":
			s, ok := value.(string)
			if !ok {
				errs.add(key, "expected string, got %s", typeName(value))
				continue
			}
			p.Pattern = s
		default:
			errs.add(key, "unknown field")
		}
	}
	if err := errs.err(); err != nil {
		return DiscoverTestsParams{}, err
	}
	return p, nil
}

var tagsPattern = regexp.MustCompile(`^[A-Za-z0-9_.,-]*$`)

// ParseExecuteTestsParams validates an execute-tests argument map.
func ParseExecuteTestsParams(raw map[string]any) (ExecuteTestsParams, error) {
	var (
		p    ExecuteTestsParams
		errs fieldErrors
	)
	for key, value := range raw {
		if value == nil {
			if !contains(ExecuteTestsFields, key) {
				errs.add(key, "unknown field")
			}
			continue
		}
		switch key {
		case "node_ids":
			ids, ok := parseStringList(key, value, &errs)
			if ok {
				p.NodeIDs = ids
			}
		case "failfast":
			p.FailFast = parseBool(key, value, &errs)
		case "short":
			p.Short = parseBool(key, value, &errs)
		case "race":
			p.Race = parseBool(key, value, &errs)
		case "show_capture":
			p.ShowCapture = parseBool(key, value, &errs)
		case "timeout":
			n, ok := asInteger(value)
			if !ok {
				errs.add(key, "expected integer number of seconds, got %s", typeName(value))
				continue
			}
			if n < 1 {
				errs.add(key, "must be at least 1 second")
				continue
			}
			p.Timeout = time.Duration(n) * time.Second
		case "run", "skip":
			s, ok := value.(string)
			if !ok {
				errs.add(key, "expected string, got %s", typeName(value))
				continue
			}
			if _, err := regexp.Compile(s); err != nil {
				errs.add(key, "invalid regular expression: %v", err)
				continue
			}
			if key == "run" {
				p.Run = s
			} else {
				p.Skip = s
			}
		case "tags":
			s, ok := value.(string)
			if !ok {
				errs.add(key, "expected string, got %s", typeName(value))
				continue
			}
			if !tagsPattern.MatchString(s) {
				errs.add(key, "must be a comma-separated list of build tags")
				continue
			}
			p.Tags = s
		default:
			errs.add(key, "unknown field")
		}
	}
	if p.NodeIDs != nil && p.Run != "" {
		errs.add("run", "cannot be combined with node_ids")
	}
	if err := errs.err(); err != nil {
		return ExecuteTestsParams{}, err
	}
	return p, nil
}

// parseStringList accepts []any of strings (decoded JSON) or []string (Go callers).
func parseStringList(key string, value any, errs *fieldErrors) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		out := make([]string, 0, len(v))
		ok := true
		for i, s := range v {
			if strings.TrimSpace(s) == "" {
				errs.add(fmt.Sprintf("%s[%d]", key, i), "must not be empty")
				ok = false
				continue
			}
			out = append(out, s)
		}
		return out, ok
	case []any:
		out := make([]string, 0, len(v))
		ok := true
		for i, item := range v {
			s, isString := item.(string)
			switch {
			case !isString:
				errs.add(fmt.Sprintf("%s[%d]", key, i), "expected string, got %s", typeName(item))
				ok = false
			case strings.TrimSpace(s) == "":
				errs.add(fmt.Sprintf("%s[%d]", key, i), "must not be empty")
				ok = false
			default:
				out = append(out, s)
			}
		}
		return out, ok
	default:
		errs.add(key, "expected array of strings, got %s", typeName(value))
		return nil, false
	}
}

func parseBool(key string, value any, errs *fieldErrors) bool {
	b, ok := value.(bool)
	if !ok {
		errs.add(key, "expected boolean, got %s", typeName(value))
	}
	return b
}

func asInteger(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64, json.Number:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func hasParentSegment(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
