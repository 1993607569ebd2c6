package execution

import (
	"gotest-mcp/internal/api"
	"gotest-mcp/internal/backend"
)

// exitCode maps a raw completion and the aggregated summary onto the exit
// code taxonomy. Earlier checks take precedence.
func exitCode(c backend.Completion, s api.ExecutionSummary) api.ExitCode {
	switch {
	case c.Crashed != nil:
		return api.ExitInternal
	case c.Interrupted, len(c.SetupFailures) > 0:
		return api.ExitInterrupted
	case c.UsageError:
		return api.ExitUsage
	case s.Failed+s.Errors > 0:
		return api.ExitTestsFailed
	case s.Total == 0:
		return api.ExitNoTests
	case c.ProcessExit != 0:
		return api.ExitInternal
	default:
		return api.ExitOK
	}
}
