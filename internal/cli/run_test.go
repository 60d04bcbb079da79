package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errBuf bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errBuf.String(), err
}

func TestRunCommand_FixedTime(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	out, _, err := execute(t, "run", "--time", "2", "--seed", "1", "--progress=false", path)
	require.NoError(t, err)

	assert.Contains(t, out, "protocol: approx_majority")
	assert.Contains(t, out, "time: 2")
	assert.Contains(t, out, "steps: 200")
	assert.Contains(t, out, "records: 3")
}

func TestRunCommand_JSON(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	out, _, err := execute(t, "run", "--format", "json", "--time", "1", "--seed", "1", path)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["time"])
	assert.Equal(t, float64(100), data["steps"])
}

func TestRunCommand_UntilSilent(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	out, _, err := execute(t, "run", "--seed", "1", "--progress=false", path)
	require.NoError(t, err)

	assert.Contains(t, out, "config:")
}

func TestRunCommand_SequentialEngine(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	_, _, err := execute(t, "run", "--engine", "sequential", "--time", "1", "--seed", "1", "--progress=false", path)
	assert.NoError(t, err)
}

func TestRunCommand_SilenceNeedsBatchEngine(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	_, _, err := execute(t, "run", "--engine", "sequential", "--seed", "1", "--progress=false", path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRunCommand_InvalidEngine(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	_, _, err := execute(t, "run", "--engine", "gpu", "--time", "1", path)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_InvalidOrder(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	_, _, err := execute(t, "run", "--order", "bidirectional", "--time", "1", path)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_MissingFile(t *testing.T) {
	_, _, err := execute(t, "run", "--time", "1", "no-such-protocol.yaml")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_InvalidFormat(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	_, _, err := execute(t, "run", "--format", "xml", "--time", "1", path)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunResult_String(t *testing.T) {
	r := RunResult{
		Protocol: "majority",
		Time:     2,
		Steps:    200,
		Records:  3,
		Config:   map[string]int64{"L10": 1, "L2": 5},
	}

	assert.Equal(t, "protocol: majority\ntime: 2\nsteps: 200\nrecords: 3\nconfig:\n  L2: 5\n  L10: 1",
		r.String(), "config keys are in canonical state order")
}

func TestSortStateKeys(t *testing.T) {
	keys := []string{"U", "A10", "A2"}
	sortStateKeys(keys)
	assert.Equal(t, []string{"A2", "A10", "U"}, keys)
}
