package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	path := writeProtocol(t, approxMajorityYAML)

	out, _, err := execute(t, "validate", path)
	require.NoError(t, err)

	assert.Equal(t, "valid\n", out)
}

func TestValidateCommand_Invalid(t *testing.T) {
	path := writeProtocol(t, `init:
  A: 10
transitions:
  - pair: [A, A]
    choices:
      - to: [B, B]
        prob: 1.5
`)

	out, _, err := execute(t, "validate", path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "invalid:")
}

func TestValidateCommand_InvalidJSON(t *testing.T) {
	path := writeProtocol(t, `init: {}
transitions: []
`)

	out, _, err := execute(t, "validate", "--format", "json", path)

	require.Error(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["valid"])
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, _, err := execute(t, "validate", "no-such-protocol.yaml")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidationResult_String(t *testing.T) {
	assert.Equal(t, "valid", ValidationResult{Valid: true}.String())
	assert.Equal(t, "invalid:\n  bad prob", ValidationResult{Errors: []string{"bad prob"}}.String())
}
