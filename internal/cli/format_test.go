package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/catalog"
)

func sampleExecute() *api.ExecuteTestsResponse {
	return &api.ExecuteTestsResponse{
		ExitCode: api.ExitTestsFailed,
		Summary:  api.ExecutionSummary{Total: 3, Passed: 1, Failed: 1, Errors: 1, Duration: 1.25},
		Tests: []api.TestResult{
			{NodeID: "calc/calc_test.go::TestAdd", Outcome: api.OutcomePassed, Duration: 0.01},
			{NodeID: "calc/calc_test.go::TestSub", Outcome: api.OutcomeFailed, Duration: 0.02, Message: "calc_test.go:12: got 1, want 2"},
			{NodeID: "calc/calc_test.go::TestDiv", Outcome: api.OutcomeErrored, Message: "panic: runtime error: integer divide by zero"},
		},
		TextOutput: "=== RUN   TestAdd\n--- PASS: TestAdd (0.01s)\n",
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, in := range []string{"table", "JSON", "yaml"} {
		_, err := ParseOutputFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestFormatter_ExecuteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, OutputFormatTable, 0).Execute(sampleExecute(), false))

	out := buf.String()
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "calc/calc_test.go::TestSub")
	assert.Contains(t, out, "got 1, want 2")
	assert.Contains(t, out, "integer divide by zero")
	assert.Contains(t, out, "3 tests:")
	assert.Contains(t, out, "exit 1: tests failed")
	assert.NotContains(t, out, "=== RUN")
}

func TestFormatter_ExecuteVerboseShowsOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, OutputFormatTable, 0).Execute(sampleExecute(), true))
	assert.Contains(t, buf.String(), "=== RUN   TestAdd")
}

func TestFormatter_ExecuteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, OutputFormatJSON, 0).Execute(sampleExecute(), false))

	var decoded api.ExecuteTestsResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *sampleExecute(), decoded)
}

func TestFormatter_DiscoverYAMLUsesWireNames(t *testing.T) {
	line := 3
	resp := &api.DiscoverTestsResponse{
		Tests:            []api.DiscoveredTest{{NodeID: "a_test.go::TestA", Module: "example.com/a", Function: "TestA", File: "a_test.go", Line: &line}},
		Count:            1,
		CollectionErrors: []string{},
	}
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, OutputFormatYAML, 0).Discover(resp))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded["count"])
	tests := decoded["tests"].([]any)
	assert.Equal(t, "a_test.go::TestA", tests[0].(map[string]any)["node_id"])
}

func TestFormatter_DiscoverTable(t *testing.T) {
	resp := &api.DiscoverTestsResponse{
		Tests:            []api.DiscoveredTest{{NodeID: "a_test.go::ExampleA", Module: "example.com/a", Function: "ExampleA", File: "a_test.go"}},
		Count:            1,
		CollectionErrors: []string{"broken_test.go: 1:1: expected 'package', found 'EOF'"},
	}
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, OutputFormatTable, 0).Discover(resp))

	out := buf.String()
	assert.Contains(t, out, "NODE ID")
	assert.Contains(t, out, "a_test.go::ExampleA")
	assert.Contains(t, out, "Collection errors:")
	assert.Contains(t, out, "broken_test.go")
}

func TestFormatter_DiscoverEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, OutputFormatTable, 0).Discover(&api.DiscoverTestsResponse{Tests: []api.DiscoveredTest{}, CollectionErrors: []string{}}))
	assert.Contains(t, buf.String(), "No tests found")
}

func TestFormatter_Tools(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, OutputFormatTable, 0).Tools(catalog.ListTools()))

	out := buf.String()
	assert.Contains(t, out, "discover-tests")
	assert.Contains(t, out, "execute-tests")
	assert.Contains(t, out, "node_ids")
}

func TestFormatter_Truncate(t *testing.T) {
	f := NewFormatter(&bytes.Buffer{}, OutputFormatTable, 10)
	assert.Equal(t, "short", f.truncate("short"))
	got := f.truncate(strings.Repeat("x", 40))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, 10, len([]rune(got)))
}

func TestFormatter_Raw(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, OutputFormatJSON, 0).Raw(`{"a":1}`))
	assert.JSONEq(t, `{"a":1}`, buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(&buf, OutputFormatJSON, 0).Raw("not json"))
	assert.Equal(t, "not json\n", buf.String())
}

func TestFailedNodeIDs(t *testing.T) {
	assert.Equal(t, []string{"calc/calc_test.go::TestSub", "calc/calc_test.go::TestDiv"}, FailedNodeIDs(sampleExecute()))
	assert.Nil(t, FailedNodeIDs(&api.ExecuteTestsResponse{}))
}

func TestDecodeToolError(t *testing.T) {
	te := DecodeToolError(`{"error":"validation_error","message":"invalid arguments: path: nope","fields":[{"field":"path","reason":"nope"}]}`)
	assert.Equal(t, "validation_error", te.Category)
	require.Len(t, te.Fields, 1)
	assert.Equal(t, "validation_error: invalid arguments: path: nope", te.Error())

	te = DecodeToolError("plain failure")
	assert.Equal(t, "plain failure", te.Error())
}

func TestProgressBar_Observe(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressBar(&buf, 3)
	p.Observe(api.TestResult{NodeID: "a", Outcome: api.OutcomePassed})
	p.Observe(api.TestResult{NodeID: "b", Outcome: api.OutcomeErrored})
	p.Observe(api.TestResult{NodeID: "c", Outcome: api.OutcomeSkipped})
	p.Finish()

	assert.Equal(t, 1, p.passed)
	assert.Equal(t, 1, p.failed)
	assert.Equal(t, 1, p.other)
	assert.Contains(t, buf.String(), "Running tests:")
}
