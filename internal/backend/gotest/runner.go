package gotest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"gotest-mcp/internal/backend"
	"gotest-mcp/pkg/logging"
)

// waitDelay bounds how long a cancelled go test may take to release its pipes.
const waitDelay = 10 * time.Second

// Run implements backend.Backend.
func (b *Backend) Run(ctx context.Context, req backend.RunRequest) (*backend.RunReport, error) {
	start := time.Now()

	idx, err := b.buildIndex(ctx, b.effectiveTags(req.Options.Tags))
	if err != nil {
		return nil, fmt.Errorf("indexing tests: %w", err)
	}

	var plans []invocation
	if req.NodeIDs == nil {
		plans = b.planAll(idx)
	} else if plans, err = b.planSelection(idx, req.NodeIDs); err != nil {
		return nil, err
	}

	report := &backend.RunReport{Results: []backend.Result{}}
	if len(plans) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	env, err := b.environment()
	if err != nil {
		return nil, err
	}

	state := newRunState(idx, req.ShowCapture, req.OnResult)
	for _, plan := range plans {
		exit, err := b.invoke(ctx, plan, req.Options, env, state)
		if ctx.Err() != nil {
			report.Completion.Interrupted = true
			report.Completion.ProcessExit = -1
			break
		}
		if err != nil {
			report.Completion.Crashed = err
			report.Completion.ProcessExit = -1
			break
		}
		if exit == 2 {
			report.Completion.UsageError = true
		}
		if exit > report.Completion.ProcessExit {
			report.Completion.ProcessExit = exit
		}
		if req.Options.FailFast && state.failures > 0 {
			break
		}
	}
	// Tests queued behind a -timeout panic never ran.
	if state.timedOut {
		report.Completion.Interrupted = true
	}

	switch {
	case report.Completion.Crashed != nil:
		state.abandon("test did not complete: go test crashed: " + report.Completion.Crashed.Error())
	case report.Completion.Interrupted:
		state.abandon("test did not complete: run interrupted")
	default:
		state.abandon("test did not report a result")
	}

	report.Results = append(report.Results, state.results...)
	report.Completion.SetupFailures = state.setup
	report.Output = state.text.String()
	report.Duration = time.Since(start)
	return report, nil
}

// args builds the go test command line for one invocation.
func (b *Backend) args(plan invocation, opts backend.RunOptions) []string {
	args := []string{"test", "-json"}
	if b.opts.DisableCache {
		args = append(args, "-count=1")
	}
	if opts.FailFast {
		args = append(args, "-failfast")
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = b.opts.DefaultTimeout
	}
	if timeout > 0 {
		args = append(args, "-timeout="+timeout.String())
	}
	run := plan.run
	if run == "" {
		run = opts.Run
	}
	if run != "" {
		args = append(args, "-run="+run)
	}
	if opts.Skip != "" {
		args = append(args, "-skip="+opts.Skip)
	}
	if opts.Short {
		args = append(args, "-short")
	}
	if opts.Race || b.opts.Race {
		args = append(args, "-race")
	}
	if tags := b.effectiveTags(opts.Tags); tags != "" {
		args = append(args, "-tags="+tags)
	}
	return append(args, plan.packages...)
}

// invoke runs one go test process, streaming its events into state. The
// returned error is set only when the process could not run at all or died
// abnormally; a nonzero exit is reported through the exit status.
func (b *Backend) invoke(ctx context.Context, plan invocation, opts backend.RunOptions, env []string, state *runState) (int, error) {
	args := b.args(plan, opts)
	logging.Debug("Runner", "Running %s %s", b.opts.GoBinary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, b.opts.GoBinary, args...)
	cmd.Dir = b.root
	cmd.Env = env
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("starting %s: %w", b.opts.GoBinary, err)
	}

	reader := bufio.NewReaderSize(stdout, 64*1024)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			if ev, ok := parseEvent(bytes.TrimSpace(line)); ok {
				state.handle(ev)
			} else {
				state.rawLine(string(line))
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				logging.Warn("Runner", "Reading go test output: %v", readErr)
			}
			break
		}
	}

	waitErr := cmd.Wait()
	if stderr.Len() > 0 {
		state.rawLine(stderr.String())
	}
	if waitErr == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if code >= 0 {
			return code, nil
		}
		if ctx.Err() != nil {
			return -1, nil
		}
		return -1, fmt.Errorf("go test terminated abnormally: %w", waitErr)
	}
	if ctx.Err() != nil {
		return -1, nil
	}
	return -1, fmt.Errorf("waiting for go test: %w", waitErr)
}
