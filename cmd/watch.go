package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"gotest-mcp/internal/cli"
	"gotest-mcp/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		opts     executeOptions
		debounce time.Duration
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "watch [node_ids...]",
		Short: "Rerun tests whenever Go files change",
		Long: `Runs the selected tests (all by default) once, then again every time a .go
file, go.mod or go.sum below the project root changes. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(cmd, true, nil)
			if err != nil {
				return err
			}
			svc := application.Services().Service
			raw := opts.arguments(cmd, args)
			formatter := cli.NewFormatter(cmd.OutOrStdout(), cli.OutputFormatTable, messageWidth)
			out := cmd.OutOrStdout()

			run := func(ctx context.Context) {
				resp, err := svc.ExecuteTests(ctx, raw, nil)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					return
				}
				formatter.Execute(resp, verbose) //nolint:errcheck
			}

			w, err := watch.New(svc.Root(), application.Config().Project.ExcludeDirs, debounce)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx := cmd.Context()
			run(ctx)
			fmt.Fprintf(out, "\nWatching %s for changes...\n", svc.Root())
			err = w.Run(ctx, func(paths []string) {
				fmt.Fprintf(out, "\n%s changed, rerunning\n\n", describeChange(svc.Root(), paths))
				run(ctx)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	opts.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Wait this long for changes to settle before rerunning")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the full go test output before the results")
	return cmd
}

func describeChange(root string, paths []string) string {
	first := paths[0]
	if rel, err := filepath.Rel(root, first); err == nil {
		first = rel
	}
	if len(paths) == 1 {
		return first
	}
	return fmt.Sprintf("%s and %d more", first, len(paths)-1)
}
