package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestInitLoggerWritesFile(t *testing.T) {
	prev := Logger
	t.Cleanup(func() {
		Logger = prev
		zap.ReplaceGlobals(prev)
	})

	dir := t.TempDir()
	require.NoError(t, InitLogger(dir, "tagctl", "info"))

	Logger.Info("hello", zap.Int("n", 1))
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "logs", "tagctl.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"service":"tagctl"`)
}
