package logger_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/tagihan/pkg/logger"
	"github.com/yusufsyaifudin/ylog"
)

func TestNewZap(t *testing.T) {
	t.Run("json lines", func(t *testing.T) {
		var buf bytes.Buffer
		zapLog, closer, err := logger.NewZap(logger.Config{Level: "info", Writer: &buf})
		require.NoError(t, err)

		zapLog.Debug("hidden")
		zapLog.Info("shown")
		require.NoError(t, closer())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
		assert.Equal(t, "shown", line["msg"])
		assert.Equal(t, "info", line["level"])
		assert.NotEmpty(t, line["ts"])
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tagihan.log")
		zapLog, closer, err := logger.NewZap(logger.Config{File: path})
		require.NoError(t, err)

		zapLog.Warn("to file")
		require.NoError(t, closer())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "to file")
	})

	t.Run("discarded without file or writer", func(t *testing.T) {
		zapLog, closer, err := logger.NewZap(logger.Config{Level: "debug"})
		require.NoError(t, err)
		require.NotNil(t, zapLog)

		zapLog.Info("nowhere")
		assert.NoError(t, closer())
	})

	t.Run("bad level", func(t *testing.T) {
		zapLog, _, err := logger.NewZap(logger.Config{Level: "loud"})
		assert.Nil(t, zapLog)
		assert.Error(t, err)
	})
}

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	ctx, closer, err := logger.Setup(context.Background(), logger.Config{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	ylog.Info(ctx, "setup done", ylog.KV("step", 1))
	require.NoError(t, closer())

	assert.Contains(t, buf.String(), "setup done")
}
