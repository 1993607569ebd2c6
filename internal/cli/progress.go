package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"gotest-mcp/internal/api"
)

// ProgressBar tracks finished tests on a terminal.
type ProgressBar struct {
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	passed int
	failed int
	other  int
}

// NewProgressBar draws a bar for total tests on out. A total below one shows
// a spinner instead, for runs whose size is not known up front.
func NewProgressBar(out io.Writer, total int) *ProgressBar {
	if total < 1 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(describe(0, 0, 0)),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(out),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressBar{bar: bar}
}

// Observe records one finished test. It matches the observer signature used
// by service.Service.ExecuteTests.
func (p *ProgressBar) Observe(r api.TestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.Outcome {
	case api.OutcomePassed:
		p.passed++
	case api.OutcomeFailed, api.OutcomeErrored:
		p.failed++
	default:
		p.other++
	}
	p.bar.Describe(describe(p.passed, p.failed, p.other))
	p.bar.Add(1) //nolint:errcheck
}

// Finish completes the bar.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Finish() //nolint:errcheck
}

func describe(passed, failed, skipped int) string {
	return color.CyanString("Running tests: ") +
		color.GreenString("[passed: %d", passed) +
		" | " +
		color.RedString("failed: %d", failed) +
		" | " +
		color.YellowString("skipped: %d]", skipped)
}
