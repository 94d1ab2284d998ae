package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestWithCaller(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "info", "json")
	t.Cleanup(func() { defaultLogger = nil })

	WithCaller("/rentfun.api.v1.PartnerService/SetPartner", "0x4e47000000000000000000000000000000000005").
		Warn("Request denied", "request_id", "req-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Request denied", entry["msg"])
	assert.Equal(t, "/rentfun.api.v1.PartnerService/SetPartner", entry["method"])
	assert.Equal(t, "0x4e47000000000000000000000000000000000005", entry["caller"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestDebugFilteredAtInfo(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "info", "text")
	t.Cleanup(func() { defaultLogger = nil })

	Debug("hidden")
	Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "k=v")
}
