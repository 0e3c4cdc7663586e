package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonLines decodes every line written by a JSON logger.
func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line), "line %q", raw)
		out = append(out, line)
	}
	return out
}

func TestDefaultConfig_LogsJSONToStderr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, LevelInfo, cfg.Level)
	assert.False(t, cfg.Pretty)
	assert.NotNil(t, cfg.Output)
}

func TestSetup_ToolCallLine(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("mcp-server")
	logger.Info().
		Str("tool", "get_course_details").
		Str("course_id", "42").
		Msg("Tool call completed")

	lines := jsonLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, ServiceName, line["service"])
	assert.Equal(t, "mcp-server", line["component"])
	assert.Equal(t, "get_course_details", line["tool"])
	assert.Equal(t, "42", line["course_id"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "time")
}

func TestSetup_PrettyOutputIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger := NewLogger("canvas-client")
	logger.Warn().Msg("Canvas quota low")

	assert.Contains(t, buf.String(), "Canvas quota low")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestSetup_LevelThreshold(t *testing.T) {
	emit := func(l zerolog.Logger) {
		l.Trace().Msg("admission wait")
		l.Debug().Msg("page fetched")
		l.Info().Msg("server started")
		l.Warn().Msg("listing truncated")
		l.Error().Msg("quota critical")
	}

	tests := []struct {
		level LogLevel
		want  []string
	}{
		{"trace", []string{"trace", "debug", "info", "warn", "error"}},
		{LevelDebug, []string{"debug", "info", "warn", "error"}},
		{LevelInfo, []string{"info", "warn", "error"}},
		{LevelWarn, []string{"warn", "error"}},
		{LevelError, []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			Setup(Config{Level: tt.level, Output: buf})
			emit(NewLogger("content-aggregator"))

			var got []string
			for _, line := range jsonLines(t, buf) {
				got = append(got, line["level"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel_AcceptsConfigSpellings(t *testing.T) {
	tests := map[LogLevel]zerolog.Level{
		"TRACE":    zerolog.TraceLevel,
		"Debug":    zerolog.DebugLevel,
		" info\n":  zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		" WARN ":   zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"":         zerolog.InfoLevel,
		"verbose":  zerolog.InfoLevel,
		"disabled": zerolog.InfoLevel,
	}

	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), "parseLevel(%q)", input)
	}
}

func TestWithRequest_TagsEveryLine(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelDebug, Output: buf})

	ctx, logger, id := WithRequest(context.Background(), NewLogger("mcp-server"))
	require.NotEmpty(t, id)

	logger.Debug().Msg("direct")
	FromContext(ctx).Debug().Msg("from context")

	lines := jsonLines(t, buf)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, id, line["request_id"])
		assert.Equal(t, "mcp-server", line["component"])
		assert.Equal(t, ServiceName, line["service"])
	}

	_, _, other := WithRequest(context.Background(), logger)
	assert.NotEqual(t, id, other)
}

func TestFromContext_FallsBackToGlobalLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	FromContext(context.Background()).Info().Msg("no request")

	lines := jsonLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, ServiceName, lines[0]["service"])
	assert.NotContains(t, lines[0], "request_id")
}
