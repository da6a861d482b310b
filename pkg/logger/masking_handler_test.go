package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskingHandler_MasksSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithCorrelationID(context.Background(), "corr-1")
	log.InfoContext(ctx, "client added",
		slog.String("token", "123:abc"),
		slog.String("name", "Anna"),
		slog.Group("client", slog.String("phone", "+79990001122"), slog.Int64("id", 7)),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "***", record["token"])
	assert.Equal(t, "Anna", record["name"])
	assert.Equal(t, "corr-1", record["correlation_id"])

	client, ok := record["client"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", client["phone"])
	assert.EqualValues(t, 7, client["id"])
}

func TestMaskingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil))).With(slog.String("dsn", "postgres://u:p@h/db"))

	log.Info("connected")

	assert.NotContains(t, buf.String(), "postgres://")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}
