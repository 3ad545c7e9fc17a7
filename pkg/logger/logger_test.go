package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelParsing(t *testing.T) {
	testCases := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			New(Config{Level: tc.level, Output: &bytes.Buffer{}})
			assert.Equal(t, tc.expected, zerolog.GlobalLevel())
		})
	}
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	l.Info().Str("symbol", "AAPL").Msg("loaded prices")
	l.Debug().Msg("filtered out")

	out := buf.String()
	assert.Contains(t, out, `"message":"loaded prices"`)
	assert.Contains(t, out, `"symbol":"AAPL"`)
	assert.Contains(t, out, `"time":`)
	assert.NotContains(t, out, "filtered out")
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Pretty: true, Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	l.Info().Msg("test message")

	out := buf.String()
	assert.Contains(t, out, "test message")
	assert.NotContains(t, out, `"message"`)
}

func TestSetGlobalLogger(t *testing.T) {
	original := log.Logger
	defer func() { log.Logger = original }()

	var buf bytes.Buffer
	SetGlobalLogger(zerolog.New(&buf))
	log.Info().Msg("global")

	assert.Contains(t, buf.String(), "global")
}
