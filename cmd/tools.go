package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/catalog"
	"gotest-mcp/internal/cli"
)

func newToolsCmd() *cobra.Command {
	var (
		output   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools and their arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}

			tools := catalog.ListTools()
			if endpoint != "" {
				if tools, err = remoteTools(cmd, endpoint); err != nil {
					return err
				}
			}
			return cli.NewFormatter(cmd.OutOrStdout(), format, messageWidth).Tools(tools)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputFormatTable), "Output format: table, json or yaml")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "List the tools of a running streamable-http server instead")
	return cmd
}

func remoteTools(cmd *cobra.Command, endpoint string) ([]api.Tool, error) {
	var tools []api.Tool
	err := withRemote(cmd.Context(), endpoint, func(c *cli.CLIClient) error {
		listed, err := c.ListTools(cmd.Context())
		if err != nil {
			return err
		}
		for _, tool := range listed {
			schema, err := json.Marshal(tool.InputSchema)
			if err != nil {
				return fmt.Errorf("encoding schema of %s: %w", tool.Name, err)
			}
			tools = append(tools, api.Tool{Name: tool.Name, Description: tool.Description, InputSchema: schema})
		}
		return nil
	})
	return tools, err
}
