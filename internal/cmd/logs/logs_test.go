package logs

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot() *cobra.Command {
	return &cobra.Command{Use: "swarmops"}
}

func TestLogsCmd_FlagsExist(t *testing.T) {
	for _, name := range []string{"run-id", "level", "worker", "phase", "contains", "export", "format"} {
		flag := logsCmd.Flags().Lookup(name)
		assert.NotNil(t, flag, "expected flag --%s to exist", name)
	}
}

func TestLogsCmd_Defaults(t *testing.T) {
	flag := logsCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "json", flag.DefValue)
}

func TestLogsCmd_RunE_MissingLogFile(t *testing.T) {
	logsRunID = "nonexistent-run"
	defer func() { logsRunID = "" }()

	err := runLogs(logsCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate logs")
}

func TestRegister_AddsLogsCommand(t *testing.T) {
	root := newTestRoot()
	Register(root)

	cmd, _, err := root.Find([]string{"logs"})
	require.NoError(t, err)
	assert.Equal(t, "logs", cmd.Use)
}
