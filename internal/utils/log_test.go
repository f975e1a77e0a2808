package utils

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogInterceptor_NumbersCompleteLines(t *testing.T) {
	var out bytes.Buffer
	li := NewLogInterceptor(&out)

	_, err := li.Write([]byte("first\nsec"))
	require.NoError(t, err)
	assert.Equal(t, "line=1 first\n", out.String())

	_, err = li.Write([]byte("ond\nthird"))
	require.NoError(t, err)
	assert.Equal(t, "line=1 first\nline=2 second\n", out.String())

	require.NoError(t, li.Close())
	assert.Equal(t, "line=1 first\nline=2 second\nline=3 third\n", out.String())
}

func TestMultiLogHandler_RespectsLevels(t *testing.T) {
	var debugOut, infoOut bytes.Buffer
	debugH := slog.NewTextHandler(&debugOut, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoH := slog.NewTextHandler(&infoOut, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiLogHandler(debugH, infoH)).With("component", "test")
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))

	logger.Debug("quiet")
	logger.Info("loud")

	assert.Contains(t, debugOut.String(), "quiet")
	assert.Contains(t, debugOut.String(), "loud")
	assert.NotContains(t, infoOut.String(), "quiet")
	assert.Contains(t, infoOut.String(), "component=test")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "******", MaskSecret(""))
	assert.Equal(t, "******", MaskSecret("hunter2"))
	assert.Equal(t, "hu******ng", MaskSecret("hunter2-long"))
}
