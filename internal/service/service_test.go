package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/backend"
	"gotest-mcp/internal/backend/backendtest"
)

func TestService_ListTools(t *testing.T) {
	svc := New(t.TempDir(), &backendtest.MockBackend{})

	tools := svc.ListTools()
	require.Len(t, tools, 2)
	assert.Equal(t, "discover-tests", tools[0].Name)
	assert.Equal(t, "execute-tests", tools[1].Name)
}

func TestService_DiscoverTests(t *testing.T) {
	root := t.TempDir()
	mb := &backendtest.MockBackend{}
	mb.On("Collect", mock.Anything, backend.CollectRequest{Path: root, Pattern: "Add"}).Return(&backend.Collection{
		Tests: []backend.CollectedTest{{NodeID: "calc_test.go::TestAdd", Package: "example.com/calc", Function: "TestAdd", File: "calc_test.go", Line: 7}},
	}, nil)

	resp, err := New(root, mb).DiscoverTests(context.Background(), map[string]any{"pattern": "Add"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "calc_test.go::TestAdd", resp.Tests[0].NodeID)
	mb.AssertExpectations(t)
}

func TestService_InvalidArgumentsNeverReachBackend(t *testing.T) {
	mb := &backendtest.MockBackend{}
	svc := New(t.TempDir(), mb)

	_, err := svc.DiscoverTests(context.Background(), map[string]any{"unknown": true})
	var verr *api.ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = svc.ExecuteTests(context.Background(), map[string]any{"timeout": 0.0}, nil)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "timeout", verr.Errors[0].Field)

	mb.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything)
	mb.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestService_ExecuteTestsObserver(t *testing.T) {
	mb := &backendtest.MockBackend{}
	mb.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(1).(backend.RunRequest)
		req.OnResult(backend.Result{NodeID: "a_test.go::TestA", Outcome: backend.Passed})
	}).Return(&backend.RunReport{
		Results: []backend.Result{{NodeID: "a_test.go::TestA", Outcome: backend.Passed}},
	}, nil)

	var seen []string
	resp, err := New(t.TempDir(), mb).ExecuteTests(context.Background(), map[string]any{"node_ids": []any{"a_test.go::TestA"}}, func(r api.TestResult) {
		seen = append(seen, r.NodeID)
	})
	require.NoError(t, err)
	assert.Equal(t, api.ExitOK, resp.ExitCode)
	assert.Equal(t, []string{"a_test.go::TestA"}, seen)
}

func TestService_CallTool(t *testing.T) {
	mb := &backendtest.MockBackend{}
	svc := New(t.TempDir(), mb)

	out, err := svc.CallTool(context.Background(), "execute-tests", map[string]any{"node_ids": []any{}})
	require.NoError(t, err)
	resp, ok := out.(*api.ExecuteTestsResponse)
	require.True(t, ok)
	assert.Equal(t, api.ExitNoTests, resp.ExitCode)

	_, err = svc.CallTool(context.Background(), "lint", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
	mb.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}
