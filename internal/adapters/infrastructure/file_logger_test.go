package infrastructure

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pushdispatch.app/internal/ports"
)

func readLogLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	var entries []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestFileLoggerAdapter_NewFileLoggerAdapter(t *testing.T) {
	tests := []struct {
		name        string
		logPath     string
		expectError bool
		errorMsg    string
	}{
		{
			name:    "valid_path",
			logPath: filepath.Join(t.TempDir(), "dispatch.log"),
		},
		{
			name:    "nested_path",
			logPath: filepath.Join(t.TempDir(), "nested", "deep", "dispatch.log"),
		},
		{
			name:        "empty_path",
			logPath:     "",
			expectError: true,
			errorMsg:    "log file path cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewFileLoggerAdapter(tt.logPath, slog.LevelDebug)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.DirExists(t, filepath.Dir(tt.logPath))
			assert.NoError(t, logger.Close())
		})
	}
}

func TestFileLoggerAdapter_LogLevels(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "dispatch.log")
	logger, err := NewFileLoggerAdapter(logPath, slog.LevelDebug)
	require.NoError(t, err)

	logger.Debug("Debug message", ports.F("token", "abc"))
	logger.Info("Dispatch complete", ports.F("requested", 3), ports.F("succeeded", 2))
	logger.Warn("Relay push request failed", ports.F("error", errors.New("connection refused")))
	logger.Error("Failed to evict dead token", ports.F("token", "dead-1"))
	require.NoError(t, logger.Close())

	entries := readLogLines(t, logPath)
	require.Len(t, entries, 4)

	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "INFO", entries[1]["level"])
	assert.Equal(t, "Dispatch complete", entries[1]["message"])
	assert.Equal(t, float64(2), entries[1]["succeeded"])
	assert.Equal(t, "connection refused", entries[2]["error"])
	assert.Equal(t, "ERROR", entries[3]["level"])
	assert.NotEmpty(t, entries[3]["timestamp"])
}

func TestFileLoggerAdapter_MinLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "dispatch.log")
	logger, err := NewFileLoggerAdapter(logPath, slog.LevelWarn)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, logger.Close())

	entries := readLogLines(t, logPath)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestFileLoggerAdapter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "dispatch.log")
	logger, err := NewFileLoggerAdapter(logPath, slog.LevelInfo)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Info(fmt.Sprintf("entry %d", n), ports.F("n", n))
		}(i)
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	assert.Len(t, readLogLines(t, logPath), 20)
}

func TestFileLoggerAdapter_WriteAfterClose(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "dispatch.log")
	logger, err := NewFileLoggerAdapter(logPath, slog.LevelInfo)
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	assert.NotPanics(t, func() { logger.Info("after close") })
	assert.NoError(t, logger.Close())
}
