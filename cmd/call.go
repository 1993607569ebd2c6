package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"gotest-mcp/internal/cli"
)

func newCallCmd() *cobra.Command {
	var (
		argsJSON string
		output   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a tool with raw JSON arguments",
		Long: `Calls discover-tests or execute-tests with an argument object given as JSON
and prints the response exactly as an MCP client would receive it.

  gotest-mcp call execute-tests --args '{"node_ids": ["calc/calc_test.go::TestAdd"]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			var raw map[string]any
			if err := json.Unmarshal([]byte(argsJSON), &raw); err != nil {
				return fmt.Errorf("--args must be a JSON object: %w", err)
			}

			var payload string
			if endpoint != "" {
				err = withRemote(cmd.Context(), endpoint, func(c *cli.CLIClient) error {
					payload, err = c.CallToolText(cmd.Context(), args[0], raw)
					return err
				})
				if err != nil {
					return err
				}
			} else {
				application, err := newApplication(cmd, true, nil)
				if err != nil {
					return err
				}
				result, err := application.Services().Service.CallTool(cmd.Context(), args[0], raw)
				if err != nil {
					return err
				}
				data, err := json.Marshal(result)
				if err != nil {
					return err
				}
				payload = string(data)
			}
			return cli.NewFormatter(cmd.OutOrStdout(), format, 0).Raw(payload)
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "{}", "Tool arguments as a JSON object")
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputFormatJSON), "Output format: json or yaml")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "URL of a running streamable-http server, e.g. http://127.0.0.1:8090/mcp")
	return cmd
}
