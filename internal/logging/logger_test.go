package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vimsicles/internal/config"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	logger.Debugw("hidden", "k", 1)
	logger.Infow("transfer complete", "bytes", 12)
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "transfer complete", entry["message"])
	assert.EqualValues(t, 12, entry["bytes"])
	assert.Contains(t, entry, "timestamp")
}

func TestInvalidLevel(t *testing.T) {
	_, err := NewWithWriter(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDevelopmentConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: "debug", Development: true}, &buf)
	require.NoError(t, err)

	logger.Debugf("state %s", "STREAMING")
	assert.Contains(t, buf.String(), "state STREAMING")
}
