package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gotest-mcp/internal/api"
	"gotest-mcp/internal/backend"
	"gotest-mcp/internal/backend/backendtest"
	"gotest-mcp/internal/backend/gotest"
)

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *api.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, field, verr.Errors[0].Field)
}

func TestDiscover_DefaultsToRoot(t *testing.T) {
	root := t.TempDir()
	mb := &backendtest.MockBackend{}
	mb.On("Collect", mock.Anything, backend.CollectRequest{Path: root, Pattern: "Add"}).
		Return(&backend.Collection{Tests: []backend.CollectedTest{
			{NodeID: "a_test.go::TestAdd", Package: "example.com/a", Function: "TestAdd", File: "a_test.go", Line: 7},
		}}, nil)

	resp, err := New(root, mb).Discover(context.Background(), api.DiscoverTestsParams{Pattern: "Add"})
	require.NoError(t, err)

	require.Len(t, resp.Tests, 1)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "example.com/a", resp.Tests[0].Module)
	require.NotNil(t, resp.Tests[0].Line)
	assert.Equal(t, 7, *resp.Tests[0].Line)
	assert.NotNil(t, resp.CollectionErrors)
	mb.AssertExpectations(t)
}

func TestDiscover_ScopedPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg", "calc"), 0755))

	mb := &backendtest.MockBackend{}
	mb.On("Collect", mock.Anything, backend.CollectRequest{Path: filepath.Join(root, "pkg", "calc")}).
		Return(&backend.Collection{}, nil)

	resp, err := New(root, mb).Discover(context.Background(), api.DiscoverTestsParams{Path: "pkg/calc"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.Equal(t, []api.DiscoveredTest{}, resp.Tests)
	assert.Equal(t, []string{}, resp.CollectionErrors)
	mb.AssertExpectations(t)
}

func TestDiscover_InvalidPathsNeverReachBackend(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"nonexistent", "nonexistent/dir"},
		{"traversal", "../" + filepath.Base(outside)},
		{"absolute outside root", outside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := &backendtest.MockBackend{}
			_, err := New(root, mb).Discover(context.Background(), api.DiscoverTestsParams{Path: tt.path})
			requireValidation(t, err, "path")
			mb.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything)
		})
	}
}

func TestDiscover_SymlinkEscapingRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	mb := &backendtest.MockBackend{}
	_, err := New(root, mb).Discover(context.Background(), api.DiscoverTestsParams{Path: "escape"})
	requireValidation(t, err, "path")
	mb.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything)
}

func TestDiscover_CollectionErrorsAreData(t *testing.T) {
	root := t.TempDir()
	mb := &backendtest.MockBackend{}
	mb.On("Collect", mock.Anything, mock.Anything).Return(&backend.Collection{
		Tests:  []backend.CollectedTest{{NodeID: "ok_test.go::TestOK", Function: "TestOK", File: "ok_test.go"}},
		Errors: []backend.CollectionError{{File: "bad_test.go", Message: "3:1: expected declaration"}},
	}, nil)

	resp, err := New(root, mb).Discover(context.Background(), api.DiscoverTestsParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Len(t, resp.Tests, 1)
	assert.Equal(t, []string{"bad_test.go: 3:1: expected declaration"}, resp.CollectionErrors)
	assert.Nil(t, resp.Tests[0].Line)
}

func TestDiscover_DropsDuplicateNodeIDs(t *testing.T) {
	root := t.TempDir()
	mb := &backendtest.MockBackend{}
	mb.On("Collect", mock.Anything, mock.Anything).Return(&backend.Collection{
		Tests: []backend.CollectedTest{
			{NodeID: "a_test.go::TestA", Line: 1},
			{NodeID: "a_test.go::TestB", Line: 2},
			{NodeID: "a_test.go::TestA", Line: 9},
		},
	}, nil)

	resp, err := New(root, mb).Discover(context.Background(), api.DiscoverTestsParams{})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "a_test.go::TestA", resp.Tests[0].NodeID)
	assert.Equal(t, 1, *resp.Tests[0].Line)
	assert.Equal(t, "a_test.go::TestB", resp.Tests[1].NodeID)
}

func TestDiscover_BackendFailure(t *testing.T) {
	root := t.TempDir()
	mb := &backendtest.MockBackend{}
	mb.On("Collect", mock.Anything, mock.Anything).Return(nil, errors.New("disk on fire"))

	_, err := New(root, mb).Discover(context.Background(), api.DiscoverTestsParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	var verr *api.ValidationError
	assert.False(t, errors.As(err, &verr))
}

// The following run the real Go backend against a small module on disk.

func newGoProject(t *testing.T, files map[string]string) *Discoverer {
	t.Helper()
	root := t.TempDir()
	files["go.mod"] = "module example.com/proj\n\ngo 1.21\n"
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	b, err := gotest.New(gotest.Options{Root: root})
	require.NoError(t, err)
	return New(root, b)
}

func TestDiscover_UnparsableFileAndValidTest(t *testing.T) {
	d := newGoProject(t, map[string]string{
		"good/good_test.go": "package good\n\nimport \"testing\"\n\nfunc TestGood(t *testing.T) {}\n",
		"bad/bad_test.go":   "package bad\n\nfunc TestBad(t *testing.T {\n",
	})

	resp, err := d.Discover(context.Background(), api.DiscoverTestsParams{})
	require.NoError(t, err)
	assert.Len(t, resp.CollectionErrors, 1)
	assert.Len(t, resp.Tests, 1)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "good/good_test.go::TestGood", resp.Tests[0].NodeID)
}

func TestDiscover_IdempotentNodeIDs(t *testing.T) {
	d := newGoProject(t, map[string]string{
		"a/a_test.go": "package a\n\nimport \"testing\"\n\nfunc TestA(t *testing.T) {}\nfunc TestB(t *testing.T) {}\n",
		"b/b_test.go": "package b\n\nimport \"testing\"\n\nfunc FuzzC(f *testing.F) {}\n",
	})

	first, err := d.Discover(context.Background(), api.DiscoverTestsParams{})
	require.NoError(t, err)
	second, err := d.Discover(context.Background(), api.DiscoverTestsParams{})
	require.NoError(t, err)

	assert.Equal(t, first.Tests, second.Tests)
	assert.Equal(t, 3, first.Count)

	unique := map[string]bool{}
	for _, tt := range first.Tests {
		unique[tt.NodeID] = true
	}
	assert.Len(t, unique, first.Count)
}
