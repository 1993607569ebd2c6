package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
)

const fakeGoEnv = "GOTEST_MCP_FAKE_GO"

func TestMain(m *testing.M) {
	if scenario := os.Getenv(fakeGoEnv); scenario != "" {
		stream, ok := fakeRuns[scenario]
		if !ok {
			os.Exit(3)
		}
		fmt.Print(stream.stdout)
		os.Exit(stream.exit)
	}
	os.Exit(m.Run())
}

var fakeRuns = map[string]struct {
	stdout string
	exit   int
}{
	"pass": {
		stdout: `{"Action":"run","Package":"example.com/cmdtest/calc","Test":"TestAdd"}
{"Action":"pass","Package":"example.com/cmdtest/calc","Test":"TestAdd","Elapsed":0.01}
{"Action":"pass","Package":"example.com/cmdtest/calc","Elapsed":0.02}
`,
	},
	"fail": {
		stdout: `{"Action":"run","Package":"example.com/cmdtest/calc","Test":"TestSub"}
{"Action":"output","Package":"example.com/cmdtest/calc","Test":"TestSub","Output":"    calc_test.go:7: got 3, want 1\n"}
{"Action":"fail","Package":"example.com/cmdtest/calc","Test":"TestSub","Elapsed":0.01}
{"Action":"fail","Package":"example.com/cmdtest/calc","Elapsed":0.02}
`,
		exit: 1,
	},
}

func TestExecuteCommand_Passing(t *testing.T) {
	root := writeProject(t)
	t.Setenv(fakeGoEnv, "pass")

	out, err := runRoot(t, "execute", "calc/calc_test.go::TestAdd", "--root", root, "--go", os.Args[0], "-o", "json")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	var resp struct {
		ExitCode int `json:"exit_code"`
		Summary  struct {
			Total  int `json:"total"`
			Passed int `json:"passed"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.ExitCode != 0 || resp.Summary.Total != 1 || resp.Summary.Passed != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestExecuteCommand_FailureExitCode(t *testing.T) {
	root := writeProject(t)
	t.Setenv(fakeGoEnv, "fail")

	_, err := runRoot(t, "execute", "calc/calc_test.go::TestSub", "--root", root, "--go", os.Args[0], "-o", "json")

	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected an exit code error, got %v", err)
	}
	if exitErr.code != 1 {
		t.Errorf("expected exit code 1, got %d", exitErr.code)
	}
}

func TestExecuteCommand_UnknownNodeID(t *testing.T) {
	root := writeProject(t)

	_, err := runRoot(t, "execute", "calc/calc_test.go::TestMissing", "--root", root, "-o", "json")
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		t.Fatalf("unknown node ids are a usage error, not a run result: %v", err)
	}
}
