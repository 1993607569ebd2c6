package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"gotest-mcp/internal/api"
	"gotest-mcp/pkg/logging"
)

// Error categories carried in the body of IsError tool results.
const (
	categoryValidation = "validation_error"
	categoryInternal   = "internal_error"
)

type errorBody struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Fields  []api.FieldError `json:"fields,omitempty"`
}

func (s *Server) handleDiscoverTests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return toolError(err), nil
	}
	resp, err := s.svc.DiscoverTests(ctx, args)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleExecuteTests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return toolError(err), nil
	}
	resp, err := s.svc.ExecuteTests(ctx, args, s.progressObserver(ctx, request))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(resp)
}

// arguments returns the call's argument object. Absent arguments are an empty
// object; anything other than an object is rejected.
func arguments(request mcp.CallToolRequest) (map[string]any, error) {
	switch args := request.Params.Arguments.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return args, nil
	default:
		return nil, api.NewValidationError("arguments", "expected object, got %T", args)
	}
}

// progressObserver returns a callback that reports each finished test as a
// progress notification, or nil when the caller did not ask for progress.
func (s *Server) progressObserver(ctx context.Context, request mcp.CallToolRequest) func(api.TestResult) {
	meta := request.Params.Meta
	if meta == nil || meta.ProgressToken == nil {
		return nil
	}
	token := meta.ProgressToken
	done := 0
	return func(r api.TestResult) {
		done++
		params := map[string]any{
			"progressToken": token,
			"progress":      done,
			"message":       fmt.Sprintf("%s %s", r.NodeID, r.Outcome),
		}
		if err := s.notify(ctx, "notifications/progress", params); err != nil {
			logging.Debug("MCPServer", "Dropping progress notification: %v", err)
		}
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError renders err as an IsError result. Validation errors are caller
// mistakes; everything else is reported as internal.
func toolError(err error) *mcp.CallToolResult {
	body := errorBody{Error: categoryInternal, Message: err.Error()}
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		body.Error = categoryValidation
		body.Fields = verr.Errors
	} else {
		logging.Error("MCPServer", err, "Tool call failed")
	}
	data, mErr := json.Marshal(body)
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}
