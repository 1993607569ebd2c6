// Package catalog describes the tools advertised to MCP callers.
package catalog

import (
	"encoding/json"

	"gotest-mcp/internal/api"
)

const discoverTestsSchema = `{
  "type": "object",
  "properties": {
    "path": {
      "type": "string",
      "description": "File or directory to search, relative to the project root. Defaults to the whole project."
    },
    "pattern": {
      "type": "string",
      "description": "Narrow results by node id, function or file name. Glob when it contains *, ? or [, substring otherwise."
    }
  },
  "additionalProperties": false
}`

const executeTestsSchema = `{
  "type": "object",
  "properties": {
    "node_ids": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Tests to run, as returned by discover-tests. A file, a package directory or dir/... selects every test below it. Omit to run everything; an empty list runs nothing."
    },
    "failfast": {"type": "boolean", "description": "Stop after the first failing test."},
    "timeout": {"type": "integer", "minimum": 1, "description": "Abort the run after this many seconds."},
    "run": {"type": "string", "description": "Only run tests matching this regular expression. Cannot be combined with node_ids."},
    "skip": {"type": "string", "description": "Skip tests matching this regular expression."},
    "short": {"type": "boolean", "description": "Tell long-running tests to shorten their run time."},
    "race": {"type": "boolean", "description": "Enable the data race detector."},
    "tags": {"type": "string", "description": "Comma-separated build tags."},
    "show_capture": {"type": "boolean", "description": "Attach each test's captured output to its result."}
  },
  "additionalProperties": false
}`

// ListTools returns the advertised tools. The result is the same on every call:
// discover-tests first, execute-tests second.
func ListTools() []api.Tool {
	return []api.Tool{
		{
			Name:        string(api.KindDiscoverTests),
			Description: "Discover Go tests (Test, Fuzz and runnable Example functions) under the project root without running them.",
			InputSchema: json.RawMessage(discoverTestsSchema),
		},
		{
			Name:        string(api.KindExecuteTests),
			Description: "Run Go tests with go test and report per-test outcomes, a summary, an exit code and the full test output.",
			InputSchema: json.RawMessage(executeTestsSchema),
		},
	}
}

// Lookup returns the tool with the given name.
func Lookup(name string) (api.Tool, bool) {
	for _, tool := range ListTools() {
		if tool.Name == name {
			return tool, true
		}
	}
	return api.Tool{}, false
}
