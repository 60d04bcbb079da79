package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_Success_Text(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Success("all good"))

	assert.Equal(t, "all good\n", buf.String())
}

func TestOutputFormatter_Success_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(map[string]int{"n": 100}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"n": float64(100)}, resp.Data)
}

func TestOutputFormatter_Failure_Text(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Failure("something broke"))

	assert.Equal(t, "error: something broke\n", buf.String())
}

func TestOutputFormatter_Failure_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Failure("something broke"))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "something broke", resp.Error)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, ErrWriter: &errBuf, Verbose: true}

	f.VerboseLog("loaded %d transitions", 3)

	assert.Empty(t, out.String(), "diagnostics never go to stdout")
	assert.Equal(t, "loaded 3 transitions\n", errBuf.String())
}

func TestOutputFormatter_VerboseLog_Quiet(t *testing.T) {
	var errBuf bytes.Buffer
	f := &OutputFormatter{Format: "text", ErrWriter: &errBuf, Verbose: false}

	f.VerboseLog("should not appear")

	assert.Empty(t, errBuf.String())
}

func TestExitError(t *testing.T) {
	cause := fmt.Errorf("no such file")
	err := WrapExitError(ExitCommandError, "cannot read protocol file", cause)

	assert.Equal(t, "cannot read protocol file: no such file", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, "bad flags", NewExitError(ExitCommandError, "bad flags").Error())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")), "non-exit errors map to failure")
	assert.Equal(t, ExitCommandError,
		GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "x"))))
}
