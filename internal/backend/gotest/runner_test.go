package gotest

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotest-mcp/internal/backend"
)

// newFakeGoBackend points the backend at this test binary, which replays the
// named scenario instead of running go test. The returned func reads back the
// argument lists the fake received.
func newFakeGoBackend(t *testing.T, scenario string, opts Options) (*Backend, func() []string) {
	t.Helper()
	argsFile := filepath.Join(t.TempDir(), "args")
	t.Setenv(fakeGoEnv, scenario)
	t.Setenv(fakeGoArgsEnv, argsFile)

	opts.GoBinary = os.Args[0]
	b := newFixtureBackend(t, opts)
	return b, func() []string {
		data, err := os.ReadFile(argsFile)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		require.NoError(t, err)
		return strings.Split(strings.TrimSpace(string(data)), "\n")
	}
}

func TestRun_MixedOutcomes(t *testing.T) {
	b, calls := newFakeGoBackend(t, "mixed", Options{DisableCache: true, DefaultTimeout: time.Minute})

	var (
		mu   sync.Mutex
		seen []string
	)
	report, err := b.Run(context.Background(), backend.RunRequest{
		OnResult: func(r backend.Result) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, r.NodeID)
		},
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, []string{"calc/calc_test.go::TestAdd", "calc/calc_test.go::TestSub", "calc/example_test.go::ExampleAdd"}, seen)
	assert.Equal(t, 1, report.Completion.ProcessExit)
	assert.False(t, report.Completion.Interrupted)
	assert.NoError(t, report.Completion.Crashed)
	assert.Empty(t, report.Completion.SetupFailures)
	assert.Contains(t, report.Output, "--- FAIL: TestSub")
	assert.Positive(t, report.Duration)

	assert.Equal(t, []string{"test -json -count=1 -timeout=1m0s ./..."}, calls())
}

func TestRun_SelectionBuildsRunExpression(t *testing.T) {
	b, calls := newFakeGoBackend(t, "passall", Options{})

	report, err := b.Run(context.Background(), backend.RunRequest{
		NodeIDs: []string{"calc/calc_test.go::TestAdd", "strs"},
		Options: backend.RunOptions{FailFast: true, Short: true, Race: true, Tags: "integration", Skip: "Slow", Timeout: 5 * time.Second},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Completion.ProcessExit)

	assert.Equal(t, []string{
		"test -json -failfast -timeout=5s -run=^(TestAdd)$ -skip=Slow -short -race -tags=integration ./calc",
		"test -json -failfast -timeout=5s -skip=Slow -short -race -tags=integration ./strs",
	}, calls())
}

func TestRun_RequestTagsSelectTaggedTests(t *testing.T) {
	b, calls := newFakeGoBackend(t, "passall", Options{})
	writeTree(t, b.Root(), map[string]string{
		"calc/integ_test.go": "//go:build integration\n\npackage calc\n\nimport \"testing\"\n\nfunc TestInteg(t *testing.T) {}\n",
	})

	_, err := b.Run(context.Background(), backend.RunRequest{NodeIDs: []string{"calc/integ_test.go::TestInteg"}})
	var selErr *backend.SelectionError
	require.True(t, errors.As(err, &selErr), "tag-gated test resolved without tags")

	_, err = b.Run(context.Background(), backend.RunRequest{
		NodeIDs: []string{"calc/integ_test.go::TestInteg"},
		Options: backend.RunOptions{Tags: "integration"},
	})
	require.NoError(t, err)

	// The package has more tests under the tag, so a single selection keeps its -run filter.
	_, err = b.Run(context.Background(), backend.RunRequest{
		NodeIDs: []string{"calc/calc_test.go::TestAdd"},
		Options: backend.RunOptions{Tags: "integration"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"test -json -run=^(TestInteg)$ -tags=integration ./calc",
		"test -json -run=^(TestAdd)$ -tags=integration ./calc",
	}, calls())
}

func TestRun_TimeoutPanicInterrupts(t *testing.T) {
	b, _ := newFakeGoBackend(t, "timeout", Options{})

	report, err := b.Run(context.Background(), backend.RunRequest{Options: backend.RunOptions{Timeout: time.Second}})
	require.NoError(t, err)

	assert.True(t, report.Completion.Interrupted)
	assert.Equal(t, 1, report.Completion.ProcessExit)
	assert.NoError(t, report.Completion.Crashed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "calc/calc_test.go::TestAdd", report.Results[0].NodeID)
	assert.Equal(t, backend.Errored, report.Results[0].Outcome)
	assert.Contains(t, report.Results[0].Message, "test timed out after 1s")
}

func TestRun_FailFastStopsAfterFailingInvocation(t *testing.T) {
	b, calls := newFakeGoBackend(t, "mixed", Options{})

	_, err := b.Run(context.Background(), backend.RunRequest{
		NodeIDs: []string{"calc/calc_test.go::TestSub", "strs"},
		Options: backend.RunOptions{FailFast: true},
	})
	require.NoError(t, err)
	assert.Len(t, calls(), 1)
}

func TestRun_UnknownNodeIDRunsNothing(t *testing.T) {
	b, calls := newFakeGoBackend(t, "passall", Options{})

	_, err := b.Run(context.Background(), backend.RunRequest{NodeIDs: []string{"calc/calc_test.go::TestNope"}})

	var selErr *backend.SelectionError
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, []string{"calc/calc_test.go::TestNope"}, selErr.Unknown)
	assert.Nil(t, calls())
}

func TestRun_EmptySelectionRunsNothing(t *testing.T) {
	b, calls := newFakeGoBackend(t, "passall", Options{})

	report, err := b.Run(context.Background(), backend.RunRequest{NodeIDs: []string{"empty"}})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.Completion.ProcessExit)
	assert.Nil(t, calls())
}

func TestRun_BuildFailure(t *testing.T) {
	b, _ := newFakeGoBackend(t, "build", Options{})

	report, err := b.Run(context.Background(), backend.RunRequest{})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, []string{calcPkg}, report.Completion.SetupFailures)
	assert.Equal(t, 1, report.Completion.ProcessExit)
}

func TestRun_UsageError(t *testing.T) {
	b, _ := newFakeGoBackend(t, "usage", Options{})

	report, err := b.Run(context.Background(), backend.RunRequest{})
	require.NoError(t, err)
	assert.True(t, report.Completion.UsageError)
	assert.Equal(t, 2, report.Completion.ProcessExit)
	assert.Contains(t, report.Output, "flag provided but not defined")
}

func TestRun_MissingGoBinary(t *testing.T) {
	b := newFixtureBackend(t, Options{GoBinary: filepath.Join(t.TempDir(), "no-such-go")})

	report, err := b.Run(context.Background(), backend.RunRequest{})
	require.NoError(t, err)
	require.Error(t, report.Completion.Crashed)
	assert.Equal(t, -1, report.Completion.ProcessExit)
}

func TestRun_CancelInterrupts(t *testing.T) {
	b, _ := newFakeGoBackend(t, "hang", Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	report, err := b.Run(ctx, backend.RunRequest{})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 20*time.Second)
	assert.True(t, report.Completion.Interrupted)
	require.Len(t, report.Results, 1)
	assert.Equal(t, backend.Errored, report.Results[0].Outcome)
	assert.Contains(t, report.Results[0].Message, "interrupted")
}

func TestRun_EnvFileAndConfiguredEnv(t *testing.T) {
	t.Setenv("GOTEST_MCP_BASE", "base")
	b := newFixtureBackend(t, Options{
		EnvFile: ".env.test",
		Env:     map[string]string{"FROM_CONFIG": "${GOTEST_MCP_BASE}-x"},
	})
	writeTree(t, b.Root(), map[string]string{".env.test": "FROM_FILE=file\n"})

	env, err := b.environment()
	require.NoError(t, err)
	assert.Contains(t, env, "FROM_FILE=file")
	assert.Contains(t, env, "FROM_CONFIG=base-x")

	b.opts.EnvFile = "missing.env"
	_, err = b.environment()
	assert.Error(t, err)
}

// TestRun_RealGoToolchain runs an actual module through go test.
func TestRun_RealGoToolchain(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go toolchain")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"go.mod": "module example.com/sample\n\ngo 1.21\n",
		"sample_test.go": `package sample

import "testing"

func TestOne(t *testing.T) {}

func TestTwo(t *testing.T) {
	t.Run("inner", func(t *testing.T) {})
}

func TestThree(t *testing.T) {
	t.Fatalf("expected %d, got %d", 4, 5)
}
`,
	})
	b, err := New(Options{Root: root, GoBinary: goBin, DisableCache: true})
	require.NoError(t, err)

	col, err := b.Collect(context.Background(), backend.CollectRequest{})
	require.NoError(t, err)
	require.Len(t, col.Tests, 3)

	report, err := b.Run(context.Background(), backend.RunRequest{})
	require.NoError(t, err)

	require.Len(t, report.Results, len(col.Tests))
	outcomes := map[string]backend.Outcome{}
	for _, r := range report.Results {
		outcomes[r.NodeID] = r.Outcome
	}
	assert.Equal(t, map[string]backend.Outcome{
		"sample_test.go::TestOne":   backend.Passed,
		"sample_test.go::TestTwo":   backend.Passed,
		"sample_test.go::TestThree": backend.Failed,
	}, outcomes)
	assert.Equal(t, 1, report.Completion.ProcessExit)

	for _, r := range report.Results {
		if r.Outcome == backend.Failed {
			assert.Contains(t, r.Message, "expected 4, got 5")
		}
	}
}
