package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/brainbox-app/brainbox/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	level, logger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(level)
		log.Logger = logger
	})
}

func TestConfigure_JSONAndLevel(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer
	logging.Configure(&buf, "PROD", "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("uid", "u1").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["message"])
	require.Equal(t, "u1", line["uid"])
	require.Equal(t, "warn", line["level"])
}

func TestConfigure_UnknownLevelIsInfo(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer
	logging.Configure(&buf, "DEV", "loud")

	log.Debug().Msg("hidden")
	require.Empty(t, buf.String())
	log.Info().Msg("visible")
	require.Contains(t, buf.String(), "visible")
}
