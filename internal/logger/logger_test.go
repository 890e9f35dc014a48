package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var lines []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var line map[string]interface{}
		require.NoError(t, dec.Decode(&line))
		lines = append(lines, line)
	}
	return lines
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	log.Debug("hidden")
	log.With("delivery", "abc").Infof("push to %s", "acme/widgets")
	log.Error("send failed", errors.New("boom"))
	log.Error("no cause", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "push to acme/widgets", lines[0]["message"])
	assert.Equal(t, "abc", lines[0]["delivery"])

	assert.Equal(t, "boom", lines[1]["error"])
	assert.NotContains(t, lines[2], "error")
}

func TestLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", "json")

	log.Debug("hidden")
	log.Info("shown")

	assert.Len(t, decodeLines(t, &buf), 1)
	assert.False(t, log.Verbose())
	assert.True(t, NewWithWriter(&buf, "DEBUG", "json").Verbose())
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json")

	quiet := log.Component("whatsmeow", "WARN")
	quiet.Info().Msg("hidden")
	quiet.Warn().Msg("shown")

	inherit := log.Component("whatsmeow-db", "")
	inherit.Debug().Msg("also shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "whatsmeow", lines[0]["component"])
	assert.Equal(t, "whatsmeow-db", lines[1]["component"])
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("nothing")
	log.Printf("migration %d\n", 1)
	assert.False(t, log.Verbose())
}
