package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel, format string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Logger{
		level:  level,
		format: format,
		output: buf,
		fields: make(map[string]interface{}),
	}, buf
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(WarnLevel, "text")

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "json")

	logger.WithField("table", "customers").Info("indexed")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "indexed", entry.Message)
	assert.Equal(t, "customers", entry.Fields["table"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	logger, _ := newBufferLogger(InfoLevel, "text")

	child := logger.WithField("request_id", "abc")
	assert.Empty(t, logger.fields)
	assert.Equal(t, "abc", child.fields["request_id"])
}
