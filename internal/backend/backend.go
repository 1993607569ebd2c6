// Package backend defines the narrow interface between the test workflows and
// the engine that actually collects and runs tests.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend collects and runs tests for one project root.
type Backend interface {
	// Collect lists the tests below req.Path. Files that cannot be loaded are
	// reported in Collection.Errors rather than as an error return.
	Collect(ctx context.Context, req CollectRequest) (*Collection, error)
	// Run executes the selected tests. Unresolvable node ids are reported as a
	// *SelectionError before anything runs.
	Run(ctx context.Context, req RunRequest) (*RunReport, error)
}

// CollectRequest scopes a collection. Path is absolute; Pattern may be empty.
type CollectRequest struct {
	Path    string
	Pattern string
}

// Collection is the raw result of a collection pass.
type Collection struct {
	Tests  []CollectedTest
	Errors []CollectionError
}

// CollectedTest is one test unit as seen by the engine.
type CollectedTest struct {
	NodeID   string
	Package  string // import path
	Function string
	File     string // slash-separated, relative to the project root
	Line     int    // zero when unknown
}

// CollectionError records a file that could not be loaded.
type CollectionError struct {
	File    string
	Message string
}

func (e CollectionError) String() string {
	if e.File == "" {
		return e.Message
	}
	return e.File + ": " + e.Message
}

// RunOptions are engine flags applied to a run.
type RunOptions struct {
	FailFast bool
	Timeout  time.Duration
	Run      string
	Skip     string
	Short    bool
	Race     bool
	Tags     string
}

// RunRequest selects what to run. A nil NodeIDs runs the whole project.
type RunRequest struct {
	NodeIDs []string
	Options RunOptions
	// ShowCapture attaches each test's captured output to its Result.
	ShowCapture bool
	// OnResult, when set, is called as each test finishes. Calls are serialized.
	OnResult func(Result)
}

// Outcome is the engine's classification of a finished test.
type Outcome string

const (
	Passed  Outcome = "passed"
	Failed  Outcome = "failed"
	Errored Outcome = "errored"
	Skipped Outcome = "skipped"
)

// Result is one finished test.
type Result struct {
	NodeID   string
	Outcome  Outcome
	Duration time.Duration
	Message  string
	Output   string
}

// Completion is the engine's raw completion status. Mapping it to a caller
// facing exit code is the workflow's job.
type Completion struct {
	// ProcessExit is the engine process exit status, -1 when it never exited normally.
	ProcessExit int
	// Interrupted is set when the run was cancelled or a test binary hit its -timeout,
	// so some selected tests may never have run.
	Interrupted bool
	// Crashed holds the reason the engine could not start or died abnormally.
	Crashed error
	// SetupFailures lists packages that failed to build or set up, so their tests never ran.
	SetupFailures []string
	// UsageError is set when the engine rejected its own invocation.
	UsageError bool
}

// RunReport is the raw result of a run.
type RunReport struct {
	Results    []Result
	Completion Completion
	Duration   time.Duration
	Output     string
}

// SelectionError reports node ids that name nothing in the project.
type SelectionError struct {
	Unknown []string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("unknown node ids: %s", strings.Join(e.Unknown, ", "))
}
