package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/cli"
	"gotest-mcp/internal/service"
)

// executeOptions mirrors the execute-tests arguments that have flags.
type executeOptions struct {
	failFast    bool
	timeout     int
	run         string
	skip        string
	short       bool
	race        bool
	tags        string
	showCapture bool
}

func (o *executeOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.failFast, "failfast", false, "Stop after the first failing test")
	cmd.Flags().IntVar(&o.timeout, "timeout", 0, "Abort the run after this many seconds")
	cmd.Flags().StringVar(&o.run, "run", "", "Only run tests matching this regular expression (not with node ids)")
	cmd.Flags().StringVar(&o.skip, "skip", "", "Skip tests matching this regular expression")
	cmd.Flags().BoolVar(&o.short, "short", false, "Tell long-running tests to shorten their run time")
	cmd.Flags().BoolVar(&o.race, "race", false, "Enable the data race detector")
	cmd.Flags().StringVar(&o.tags, "tags", "", "Comma-separated build tags")
	cmd.Flags().BoolVar(&o.showCapture, "show-capture", false, "Attach captured output to each result")
}

// arguments builds the execute-tests argument map. Only flags the user set
// are included so that validation sees exactly what was asked for.
func (o *executeOptions) arguments(cmd *cobra.Command, nodeIDs []string) map[string]any {
	raw := map[string]any{}
	if len(nodeIDs) > 0 {
		ids := make([]any, len(nodeIDs))
		for i, id := range nodeIDs {
			ids[i] = id
		}
		raw["node_ids"] = ids
	}
	set := func(flag, key string, value any) {
		if cmd.Flags().Changed(flag) {
			raw[key] = value
		}
	}
	set("failfast", "failfast", o.failFast)
	set("timeout", "timeout", o.timeout)
	set("run", "run", o.run)
	set("skip", "skip", o.skip)
	set("short", "short", o.short)
	set("race", "race", o.race)
	set("tags", "tags", o.tags)
	set("show-capture", "show_capture", o.showCapture)
	return raw
}

func newExecuteCmd() *cobra.Command {
	var (
		opts       executeOptions
		output     string
		verbose    bool
		progress   bool
		copyFailed bool
		endpoint   string
	)

	cmd := &cobra.Command{
		Use:   "execute [node_ids...]",
		Short: "Run tests and report per-test outcomes",
		Long: `Runs the given tests, or every test of the project when none are given.
A node id is either <file>::<Func> as printed by 'gotest-mcp discover', a test
file, a package directory, or dir/... for everything below a directory.

The process exits with the run's exit code: 0 all passed, 1 failures,
2 interrupted or a package failed to build, 3 internal error, 4 usage error,
5 no tests ran.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			raw := opts.arguments(cmd, args)

			var resp *api.ExecuteTestsResponse
			if endpoint != "" {
				resp = &api.ExecuteTestsResponse{}
				if err := callRemote(cmd.Context(), endpoint, string(api.KindExecuteTests), raw, resp); err != nil {
					return err
				}
			} else {
				application, err := newApplication(cmd, true, nil)
				if err != nil {
					return err
				}
				svc := application.Services().Service

				var observe func(api.TestResult)
				if progress {
					bar := cli.NewProgressBar(cmd.ErrOrStderr(), expectedTotal(cmd.Context(), svc, raw))
					observe = bar.Observe
					defer bar.Finish()
				}
				if resp, err = svc.ExecuteTests(cmd.Context(), raw, observe); err != nil {
					return err
				}
			}

			if err := cli.NewFormatter(cmd.OutOrStdout(), format, messageWidth).Execute(resp, verbose); err != nil {
				return err
			}
			if copyFailed {
				copyFailedIDs(cmd, resp)
			}
			if resp.ExitCode != api.ExitOK {
				return &exitCodeError{code: int(resp.ExitCode)}
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputFormatTable), "Output format: table, json or yaml")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the full go test output before the results")
	cmd.Flags().BoolVar(&progress, "progress", false, "Show a progress bar on stderr while tests run")
	cmd.Flags().BoolVar(&copyFailed, "copy-failed", false, "Copy the node ids of failing tests to the clipboard")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "URL of a running streamable-http server, e.g. http://127.0.0.1:8090/mcp")
	return cmd
}

// expectedTotal sizes the progress bar. It is only known up front for full
// runs; anything else gets a spinner.
func expectedTotal(ctx context.Context, svc *service.Service, raw map[string]any) int {
	if _, selected := raw["node_ids"]; selected {
		return -1
	}
	if _, filtered := raw["run"]; filtered {
		return -1
	}
	resp, err := svc.DiscoverTests(ctx, nil)
	if err != nil {
		return -1
	}
	return resp.Count
}

func copyFailedIDs(cmd *cobra.Command, resp *api.ExecuteTestsResponse) {
	ids := cli.FailedNodeIDs(resp)
	if len(ids) == 0 {
		return
	}
	if err := clipboard.WriteAll(strings.Join(ids, " ")); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Could not copy to clipboard: %v\n", err)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Copied %d failing node ids to the clipboard\n", len(ids))
}
