// Package cli holds the pieces shared by the command line front end: a small
// MCP client for talking to a running server and the terminal formatter.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"gotest-mcp/internal/api"
)

// DefaultTimeout bounds a single request. Test runs can take a while, so it
// is generous.
const DefaultTimeout = 15 * time.Minute

// ToolError is an IsError tool result decoded from its JSON body.
type ToolError struct {
	Category string           `json:"error"`
	Message  string           `json:"message"`
	Fields   []api.FieldError `json:"fields,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Category == "" {
		return e.Message
	}
	return e.Category + ": " + e.Message
}

// CLIClient is a minimal MCP client over the streamable HTTP transport.
type CLIClient struct {
	endpoint string
	client   client.MCPClient
	timeout  time.Duration
	version  string
}

// NewCLIClient creates a client for endpoint, e.g. http://127.0.0.1:8090/mcp.
func NewCLIClient(endpoint, version string) *CLIClient {
	return &CLIClient{
		endpoint: endpoint,
		timeout:  DefaultTimeout,
		version:  version,
	}
}

// Connect starts the transport and performs the MCP handshake.
func (c *CLIClient) Connect(ctx context.Context) error {
	httpClient, err := client.NewStreamableHttpClient(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to create streamable-http client: %w", err)
	}
	if err := httpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start streamable-http client: %w", err)
	}
	c.client = httpClient

	if err := c.initialize(ctx); err != nil {
		c.Close()
		return fmt.Errorf("initialization failed: %w", err)
	}
	return nil
}

// ListTools returns the tools the server advertises.
func (c *CLIClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.ListTools(timeoutCtx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	return res.Tools, nil
}

// CallTool calls name and returns the raw result.
func (c *CLIClient) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.CallTool(timeoutCtx, req)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	return result, nil
}

// CallToolText calls name and returns its text content. IsError results are
// returned as a *ToolError.
func (c *CLIClient) CallToolText(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := c.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}
	text := ResultText(result)
	if result.IsError {
		return "", DecodeToolError(text)
	}
	return text, nil
}

// Close closes the connection.
func (c *CLIClient) Close() error {
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

func (c *CLIClient) initialize(ctx context.Context) error {
	var req mcp.InitializeRequest
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "gotest-mcp-cli",
		Version: c.version,
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.client.Initialize(timeoutCtx, req)
	return err
}

// ResultText joins the text contents of result.
func ResultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, textContent.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// DecodeToolError parses an error body. Bodies that are not JSON become the message.
func DecodeToolError(text string) *ToolError {
	var te ToolError
	if err := json.Unmarshal([]byte(text), &te); err != nil || te.Message == "" {
		return &ToolError{Message: text}
	}
	return &te
}
