package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithNoPathUsesDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.HandshakeTimeout)
	assert.Equal(t, 120*time.Second, s.IdleCacheTTL)
	assert.Equal(t, "atvremote", s.DisplayName)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("ATVREMOTE_DISPLAY_NAME", "living-room-remote")
	t.Setenv("ATVREMOTE_LOG_LEVEL", "debug")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "living-room-remote", s.DisplayName)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/atvremote.yaml")
	assert.Error(t, err)
}
