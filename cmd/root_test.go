package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"boundary", "zone", "buildable", "contour", "dem"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "siteworks", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestBoundaryImportCommand_Flags(t *testing.T) {
	flag := boundaryImportCmd.Flags().Lookup("project")
	require.NotNil(t, flag, "boundary import should have --project flag")
	assert.Equal(t, "default", flag.DefValue)
}

func TestZoneAddCommand_Flags(t *testing.T) {
	for _, name := range []string{"name", "type", "buffer"} {
		require.NotNil(t, zoneAddCmd.Flags().Lookup(name), "zone add should have --%s flag", name)
	}
}

func TestBuildableComputeCommand_Flags(t *testing.T) {
	flag := buildableComputeCmd.Flags().Lookup("force")
	require.NotNil(t, flag, "buildable compute should have --force flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestDemEnqueueCommand_Flags(t *testing.T) {
	require.NotNil(t, demEnqueueCmd.Flags().Lookup("resolution"))
	require.NotNil(t, demEnqueueCmd.Flags().Lookup("method"))
}
