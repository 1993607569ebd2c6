package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"gotest-mcp/internal/cli"
)

// messageWidth bounds failure message lines in table output.
const messageWidth = 160

// withRemote connects to a running server for the duration of fn.
func withRemote(ctx context.Context, endpoint string, fn func(*cli.CLIClient) error) error {
	c := cli.NewCLIClient(endpoint, rootCmd.Version)
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer c.Close()
	return fn(c)
}

// callRemote calls tool on a running server and decodes its JSON response into out.
func callRemote(ctx context.Context, endpoint, tool string, args map[string]any, out any) error {
	return withRemote(ctx, endpoint, func(c *cli.CLIClient) error {
		text, err := c.CallToolText(ctx, tool, args)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(text), out); err != nil {
			return fmt.Errorf("decoding %s response: %w", tool, err)
		}
		return nil
	})
}
