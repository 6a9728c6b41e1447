package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/easyapply-cli/internal/observability"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version, strings.TrimSpace(out))
}

func TestRootListsApplyCommand(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "apply")
	assert.Contains(t, out, "version")
}

func TestApplyRejectsInvalidConfig(t *testing.T) {
	// No credentials anywhere: the command must fail validation before it
	// would ever launch a browser.
	t.Setenv("EASYAPPLY_USERNAME", "")
	t.Setenv("EASYAPPLY_PASSWORD", "")
	_, err := execute(t, "apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestApplyFlagDefaults(t *testing.T) {
	root := NewRootCommand()
	applyCmd, _, err := root.Find([]string{"apply"})
	require.NoError(t, err)

	f := applyCmd.Flags()
	output, err := f.GetString("output")
	require.NoError(t, err)
	assert.Equal(t, "output.csv", output)

	headless, err := f.GetBool("headless")
	require.NoError(t, err)
	assert.False(t, headless)
}
