package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { Setup(Config{Level: "info"}) })

	l.Info().Msg("hidden")
	l.Warn().Str("source", "static").Msg("placeholder")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "static", rec["source"])
	assert.Equal(t, "placeholder", rec["message"])
}

func TestCtx_PrefersContextLogger(t *testing.T) {
	var baseBuf, reqBuf bytes.Buffer
	Setup(Config{Level: "info", Output: &baseBuf})
	t.Cleanup(func() { Setup(Config{Level: "info"}) })

	reqLogger := zerolog.New(&reqBuf).With().Str("request_id", "abc").Logger()
	ctx := reqLogger.WithContext(context.Background())

	Ctx(ctx).Info().Msg("in request")
	Ctx(context.Background()).Info().Msg("no request")

	assert.Contains(t, reqBuf.String(), `"request_id":"abc"`)
	assert.Contains(t, baseBuf.String(), "no request")
	assert.NotContains(t, baseBuf.String(), "in request")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, parseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("chatty"))
}
