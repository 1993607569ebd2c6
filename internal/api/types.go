package api

import "encoding/json"

// Tool describes one callable capability advertised to callers.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// DiscoveredTest is one test unit found during discovery.
type DiscoveredTest struct {
	NodeID   string `json:"node_id"`
	Module   string `json:"module"`
	Function string `json:"function"`
	File     string `json:"file"`
	Line     *int   `json:"line"`
}

// DiscoverTestsResponse is the result of discovery.
type DiscoverTestsResponse struct {
	Tests            []DiscoveredTest `json:"tests"`
	Count            int              `json:"count"`
	CollectionErrors []string         `json:"collection_errors"`
}

// Outcome classifies a single executed test.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeErrored Outcome = "errored"
	OutcomeSkipped Outcome = "skipped"
)

// Valid reports whether o is one of the four known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePassed, OutcomeFailed, OutcomeErrored, OutcomeSkipped:
		return true
	}
	return false
}

// TestResult is the outcome of one executed test.
type TestResult struct {
	NodeID   string  `json:"node_id"`
	Outcome  Outcome `json:"outcome"`
	Duration float64 `json:"duration"`
	Message  string  `json:"message,omitempty"`
	// Output is the test's captured output, only filled when show_capture is set.
	Output string `json:"output,omitempty"`
}

// ExecutionSummary holds aggregate counts for a run. Duration is in seconds.
type ExecutionSummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Errors   int     `json:"errors"`
	Skipped  int     `json:"skipped"`
	Duration float64 `json:"duration"`
}

// Add counts one result and widens Duration to cover it.
func (s *ExecutionSummary) Add(r TestResult) {
	s.Total++
	switch r.Outcome {
	case OutcomePassed:
		s.Passed++
	case OutcomeFailed:
		s.Failed++
	case OutcomeErrored:
		s.Errors++
	case OutcomeSkipped:
		s.Skipped++
	}
	if r.Duration > s.Duration {
		s.Duration = r.Duration
	}
}

// ExitCode is the coarse run status callers can branch on without reading tests.
type ExitCode int

const (
	ExitOK          ExitCode = 0 // all selected tests passed
	ExitTestsFailed ExitCode = 1 // at least one test failed or errored
	ExitInterrupted ExitCode = 2 // the run stopped before completion
	ExitInternal    ExitCode = 3 // the engine itself failed
	ExitUsage       ExitCode = 4 // the engine rejected its invocation
	ExitNoTests     ExitCode = 5 // nothing was collected or selected
)

func (c ExitCode) String() string {
	switch c {
	case ExitOK:
		return "ok"
	case ExitTestsFailed:
		return "tests failed"
	case ExitInterrupted:
		return "interrupted"
	case ExitInternal:
		return "internal error"
	case ExitUsage:
		return "usage error"
	case ExitNoTests:
		return "no tests"
	default:
		return "unknown"
	}
}

// ExecuteTestsResponse is the result of execution.
type ExecuteTestsResponse struct {
	ExitCode   ExitCode         `json:"exit_code"`
	Summary    ExecutionSummary `json:"summary"`
	Tests      []TestResult     `json:"tests"`
	TextOutput string           `json:"text_output"`
}
