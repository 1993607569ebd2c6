package gotest

import (
	"encoding/json"
	"strings"
	"time"

	"gotest-mcp/internal/backend"
)

// testEvent is one line of `go test -json` output (see cmd/test2json).
type testEvent struct {
	Time        time.Time `json:",omitempty"`
	Action      string
	Package     string  `json:",omitempty"`
	Test        string  `json:",omitempty"`
	Elapsed     float64 `json:",omitempty"`
	Output      string  `json:",omitempty"`
	FailedBuild string  `json:",omitempty"`
	ImportPath  string  `json:",omitempty"`
}

// parseEvent decodes a line. ok is false for lines that are not events.
func parseEvent(line []byte) (ev testEvent, ok bool) {
	if len(line) == 0 || line[0] != '{' {
		return testEvent{}, false
	}
	if err := json.Unmarshal(line, &ev); err != nil || ev.Action == "" {
		return testEvent{}, false
	}
	return ev, true
}

type testRecord struct {
	key    eventKey
	output strings.Builder
	done   bool
}

// runState folds the event stream of one or more go test processes into
// per-test results. Subtest events are attributed to their top-level test.
type runState struct {
	idx         *index
	showCapture bool
	onResult    func(backend.Result)

	text      strings.Builder
	records   map[eventKey]*testRecord
	order     []*testRecord
	pkgOutput map[string]*strings.Builder
	setup     []string
	setupSeen map[string]bool
	results   []backend.Result
	failures  int
	// timedOut is set once a test binary reports its -timeout panic.
	timedOut  bool
}

func newRunState(idx *index, showCapture bool, onResult func(backend.Result)) *runState {
	return &runState{
		idx:         idx,
		showCapture: showCapture,
		onResult:    onResult,
		records:     map[eventKey]*testRecord{},
		pkgOutput:   map[string]*strings.Builder{},
		setupSeen:   map[string]bool{},
	}
}

// rawLine records output that was not a test2json event.
func (s *runState) rawLine(line string) {
	s.text.WriteString(line)
	if !strings.HasSuffix(line, "\n") {
		s.text.WriteByte('\n')
	}
}

func (s *runState) handle(ev testEvent) {
	switch ev.Action {
	case "output", "build-output":
		s.text.WriteString(ev.Output)
	}
	if ev.Action == "output" && strings.HasPrefix(ev.Output, timeoutPanic) {
		s.timedOut = true
	}

	if ev.Action == "build-fail" {
		// ImportPath reads "pkg [pkg.test]" for test builds.
		pkg, _, _ := strings.Cut(ev.ImportPath, " ")
		s.setupFailed(pkg)
		return
	}
	if ev.Action == "build-output" {
		return
	}

	if ev.Test == "" {
		s.handlePackage(ev)
		return
	}

	top, _, isSub := strings.Cut(ev.Test, "/")
	key := eventKey{ev.Package, top}

	switch ev.Action {
	case "run":
		s.record(key)
	case "output":
		s.record(key).output.WriteString(ev.Output)
	case "pass", "fail", "skip":
		if !isSub {
			s.finish(s.record(key), ev.Action, ev.Elapsed)
		}
	}
}

func (s *runState) handlePackage(ev testEvent) {
	switch ev.Action {
	case "output":
		buf, ok := s.pkgOutput[ev.Package]
		if !ok {
			buf = &strings.Builder{}
			s.pkgOutput[ev.Package] = buf
		}
		buf.WriteString(ev.Output)
	case "fail":
		ran := false
		for _, rec := range s.order {
			if rec.key.pkg != ev.Package {
				continue
			}
			ran = true
			if !rec.done {
				// The test binary died with this test in flight, typically a panic or timeout.
				if rec.output.Len() == 0 {
					if buf, ok := s.pkgOutput[ev.Package]; ok {
						rec.output.WriteString(buf.String())
					}
				}
				s.finish(rec, "fail", 0)
			}
		}
		if !ran || ev.FailedBuild != "" {
			s.setupFailed(ev.Package)
		}
	}
}

func (s *runState) record(key eventKey) *testRecord {
	rec, ok := s.records[key]
	if !ok {
		rec = &testRecord{key: key}
		s.records[key] = rec
		s.order = append(s.order, rec)
	}
	return rec
}

func (s *runState) setupFailed(pkg string) {
	if pkg == "" || s.setupSeen[pkg] {
		return
	}
	s.setupSeen[pkg] = true
	s.setup = append(s.setup, pkg)
}

func (s *runState) finish(rec *testRecord, action string, elapsed float64) {
	if rec.done {
		return
	}
	rec.done = true

	output := rec.output.String()
	res := backend.Result{
		NodeID:   s.idx.nodeIDFor(rec.key.pkg, rec.key.test),
		Duration: time.Duration(elapsed * float64(time.Second)),
	}
	switch action {
	case "pass":
		res.Outcome = backend.Passed
	case "skip":
		res.Outcome = backend.Skipped
		res.Message = failureMessage(output)
	default:
		res.Outcome = backend.Failed
		if isCrash(output) {
			res.Outcome = backend.Errored
		}
		res.Message = failureMessage(output)
		if res.Message == "" {
			res.Message = "test failed"
		}
		s.failures++
	}
	if s.showCapture {
		res.Output = output
	}

	s.results = append(s.results, res)
	if s.onResult != nil {
		s.onResult(res)
	}
}

// abandon closes out tests that started but never reported, e.g. after the
// process was killed.
func (s *runState) abandon(reason string) {
	for _, rec := range s.order {
		if !rec.done {
			rec.done = true
			res := backend.Result{
				NodeID:  s.idx.nodeIDFor(rec.key.pkg, rec.key.test),
				Outcome: backend.Errored,
				Message: reason,
			}
			if s.showCapture {
				res.Output = rec.output.String()
			}
			s.failures++
			s.results = append(s.results, res)
			if s.onResult != nil {
				s.onResult(res)
			}
		}
	}
}

const timeoutPanic = "panic: test timed out after"

func isCrash(output string) bool {
	return strings.Contains(output, "panic:") || strings.Contains(output, "test timed out")
}

var framingPrefixes = []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- FAIL", "--- PASS", "--- SKIP"}

// failureMessage strips go test's framing lines from captured output.
func failureMessage(output string) string {
	var kept []string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || hasAnyPrefix(trimmed, framingPrefixes) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
