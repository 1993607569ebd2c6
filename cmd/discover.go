package cmd

import (
	"github.com/spf13/cobra"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/cli"
)

func newDiscoverCmd() *cobra.Command {
	var (
		pattern  string
		output   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "discover [path]",
		Short: "List the tests of the project without running them",
		Long: `Lists Test, Fuzz and runnable Example functions below path (default: the
project root). --pattern narrows the list: it is a glob when it contains *, ?
or [, and a substring match otherwise.

With --endpoint the request is sent to a running 'gotest-mcp serve
--transport streamable-http' instead of being answered locally.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}

			raw := map[string]any{}
			if len(args) == 1 {
				raw["path"] = args[0]
			}
			if pattern != "" {
				raw["pattern"] = pattern
			}

			var resp *api.DiscoverTestsResponse
			if endpoint != "" {
				resp = &api.DiscoverTestsResponse{}
				if err := callRemote(cmd.Context(), endpoint, string(api.KindDiscoverTests), raw, resp); err != nil {
					return err
				}
			} else {
				application, err := newApplication(cmd, true, nil)
				if err != nil {
					return err
				}
				if resp, err = application.Services().Service.DiscoverTests(cmd.Context(), raw); err != nil {
					return err
				}
			}
			return cli.NewFormatter(cmd.OutOrStdout(), format, messageWidth).Discover(resp)
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Only list tests whose node id, function or file matches")
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputFormatTable), "Output format: table, json or yaml")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "URL of a running streamable-http server, e.g. http://127.0.0.1:8090/mcp")
	return cmd
}
