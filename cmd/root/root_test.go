package root

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerryBytes/awsbridge/internal/config"
)

func TestRootCommandMetadata(t *testing.T) {
	assert.Equal(t, "awsbridge", RootCmd.Use)
	assert.Equal(t, config.Version, RootCmd.Version)
	assert.NotEmpty(t, RootCmd.Short)
}

func TestRootCommandStructure(t *testing.T) {
	expected := []string{"serve", "host", "token", "diagnose"}
	for _, name := range expected {
		cmd, _, err := RootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	tokenCmd, _, err := RootCmd.Find([]string{"token"})
	require.NoError(t, err)
	subNames := make([]string, 0, len(tokenCmd.Commands()))
	for _, sub := range tokenCmd.Commands() {
		subNames = append(subNames, sub.Name())
	}
	assert.Contains(t, subNames, "show")
	assert.Contains(t, subNames, "rotate")
}
