// Package execution turns the backend's run phase into execute-tests responses.
package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/semaphore"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/backend"
	"gotest-mcp/pkg/logging"
)

// Executor runs tests for one project root. Runs are serialized: a second
// Execute waits until the first one finishes or its own context ends.
type Executor struct {
	backend backend.Backend
	runLock *semaphore.Weighted
}

// New returns an Executor backed by b.
func New(b backend.Backend) *Executor {
	return &Executor{
		backend: b,
		runLock: semaphore.NewWeighted(1),
	}
}

// Execute runs the selected tests and builds the response. Test failures are
// reported in the response; only malformed selections (*api.ValidationError)
// and backend faults are returned as errors.
func (e *Executor) Execute(ctx context.Context, params api.ExecuteTestsParams) (*api.ExecuteTestsResponse, error) {
	return e.ExecuteWithObserver(ctx, params, nil)
}

// ExecuteWithObserver is Execute with a callback invoked as each test finishes.
func (e *Executor) ExecuteWithObserver(ctx context.Context, params api.ExecuteTestsParams, observe func(api.TestResult)) (*api.ExecuteTestsResponse, error) {
	if params.NodeIDs != nil && len(params.NodeIDs) == 0 {
		return &api.ExecuteTestsResponse{
			ExitCode: api.ExitNoTests,
			Tests:    []api.TestResult{},
		}, nil
	}

	if err := e.runLock.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for the running test run to finish: %w", err)
	}
	defer e.runLock.Release(1)

	req := backend.RunRequest{
		NodeIDs: params.NodeIDs,
		Options: backend.RunOptions{
			FailFast: params.FailFast,
			Timeout:  params.Timeout,
			Run:      params.Run,
			Skip:     params.Skip,
			Short:    params.Short,
			Race:     params.Race,
			Tags:     params.Tags,
		},
		ShowCapture: params.ShowCapture,
	}
	if observe != nil {
		req.OnResult = func(r backend.Result) { observe(toTestResult(r)) }
	}

	report, err := e.backend.Run(ctx, req)
	if err != nil {
		var selErr *backend.SelectionError
		if errors.As(err, &selErr) {
			return nil, &api.ValidationError{Errors: []api.FieldError{{
				Field:  "node_ids",
				Reason: "unknown node ids: " + strings.Join(selErr.Unknown, ", "),
			}}}
		}
		return nil, fmt.Errorf("running tests: %w", err)
	}

	resp := buildResponse(report)
	if resp.ExitCode == api.ExitInternal {
		logging.Error("Executor", report.Completion.Crashed, "Test run failed internally (process exit %d)", report.Completion.ProcessExit)
	}
	logging.Info("Executor", "Run finished: exit=%d total=%d passed=%d failed=%d errors=%d skipped=%d duration=%.2fs",
		resp.ExitCode, resp.Summary.Total, resp.Summary.Passed, resp.Summary.Failed, resp.Summary.Errors, resp.Summary.Skipped, resp.Summary.Duration)
	return resp, nil
}

func buildResponse(report *backend.RunReport) *api.ExecuteTestsResponse {
	resp := &api.ExecuteTestsResponse{
		Tests:      make([]api.TestResult, 0, len(report.Results)),
		TextOutput: report.Output,
	}
	for _, r := range report.Results {
		tr := toTestResult(r)
		resp.Tests = append(resp.Tests, tr)
		resp.Summary.Add(tr)
	}
	if wall := report.Duration.Seconds(); wall > resp.Summary.Duration {
		resp.Summary.Duration = wall
	}

	resp.ExitCode = exitCode(report.Completion, resp.Summary)
	return resp
}

func toTestResult(r backend.Result) api.TestResult {
	d := r.Duration.Seconds()
	if d < 0 {
		d = 0
	}
	return api.TestResult{
		NodeID:   r.NodeID,
		Outcome:  api.Outcome(r.Outcome),
		Duration: d,
		Message:  r.Message,
		Output:   r.Output,
	}
}
