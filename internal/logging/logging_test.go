package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Setenv(EnvLevel, "")
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, Setup("warn", &buf))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("hidden")
	log.Warn().Str("frame", "12").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "frame=")
}

func TestSetupDefaultAndEnv(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	t.Setenv(EnvLevel, "")
	require.NoError(t, Setup("", &bytes.Buffer{}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	t.Setenv(EnvLevel, "DEBUG")
	require.NoError(t, Setup("error", &bytes.Buffer{}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupInvalid(t *testing.T) {
	t.Setenv(EnvLevel, "")
	assert.Error(t, Setup("chatty", &bytes.Buffer{}))
}
