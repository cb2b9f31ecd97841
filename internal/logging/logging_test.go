package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nalsan/peka/internal/logging"
)

func TestJSONLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(logging.Options{Level: "warn", Format: "json", Writer: &buf})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Str("op", "open_vault").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "open_vault", entry["op"])
	require.Equal(t, "shown", entry["message"])
	require.Contains(t, entry, "time")
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	require.NoError(t, err)

	log.Debug().Str("vault", "/tmp/a.peka").Msg("ok")
	require.Contains(t, buf.String(), "vault=/tmp/a.peka")
	require.NotContains(t, buf.String(), "\x1b[")
}

func TestDefaults(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(logging.Options{Writer: &buf})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	require.Empty(t, buf.String())
	log.Error().Msg("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestValidate(t *testing.T) {
	require.NoError(t, logging.Options{Level: "INFO", Format: "JSON"}.Validate())
	require.Error(t, logging.Options{Level: "loud"}.Validate())
	require.Error(t, logging.Options{Format: "xml"}.Validate())

	_, err := logging.New(logging.Options{Level: "loud"})
	require.Error(t, err)
}
