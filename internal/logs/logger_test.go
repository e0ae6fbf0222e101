package logs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcphub-go/internal/config"
)

func TestSetupLoggerConsoleOnly(t *testing.T) {
	logger, err := SetupLogger(&config.LogConfig{
		Level:         "debug",
		EnableConsole: true,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debug("console logger works")
}

func TestSetupLoggerNoOutputs(t *testing.T) {
	_, err := SetupLogger(&config.LogConfig{})
	assert.Error(t, err)
}

func TestSetupLoggerFileOutput(t *testing.T) {
	dir := t.TempDir()
	logger, err := SetupLogger(&config.LogConfig{
		Level:      "info",
		EnableFile: true,
		LogDir:     dir,
		Filename:   "test.log",
		MaxSize:    1,
	})
	require.NoError(t, err)

	logger.Info("file logger works")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "file logger works")
}

func TestLogFilePathCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	path, err := LogFilePath(dir, "main.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.log"), path)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, parseLevel("info"), parseLevel("bogus"))
}
