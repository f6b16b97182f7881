package monitoring

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	// nil installs a no-op; this must not panic.
	SetLogger(nil)
	Logf("test message %d", 1)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"trace":   zerolog.TraceLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestConfigureJSON(t *testing.T) {
	originalBase, originalLogf := base, Logf
	defer func() { base, Logf = originalBase, originalLogf }()

	var buf bytes.Buffer
	Configure(&buf, "info", false)

	log := Component("gesture")
	log.Debug().Msg("hidden")
	log.Info().Float64("hold_s", 0.8).Msg("pinch accepted")
	Logf("plain %s", "line")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2, "debug event should be filtered at info level")

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "gesture", first["component"])
	assert.Equal(t, "pinch accepted", first["message"])
	assert.InDelta(t, 0.8, first["hold_s"], 1e-9)

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "plain line", second["message"])
}
