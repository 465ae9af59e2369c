package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	require.NoError(t, ConfigureLogging(ServerConfig{LogLevel: "debug"}))
	require.NoError(t, ConfigureLogging(ServerConfig{LogDevelopment: true}))
	// Unknown levels fall back to info.
	require.NoError(t, ConfigureLogging(ServerConfig{LogLevel: "loud"}))
}
