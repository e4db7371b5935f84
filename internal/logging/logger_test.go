package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobs-scraper/internal/logging/adapters"
)

func bufferLogger(t *testing.T, format string) (*MultiLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapters.NewStdoutAdapter("buf", adapters.StdoutConfig{Format: format, Out: buf})))
	return logger, buf
}

func TestMultiLogger_LevelFiltering(t *testing.T) {
	logger, buf := bufferLogger(t, "text")
	logger.SetLevel(WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown")
}

func TestMultiLogger_Fields(t *testing.T) {
	logger, buf := bufferLogger(t, "text")

	child := logger.WithField("run_id", "abc")
	child.Info("page scraped", map[string]interface{}{"page": 2, "listings": 20})
	logger.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "page scraped listings=20 page=2 run_id=abc"))
	assert.NotContains(t, lines[1], "run_id")
}

func TestMultiLogger_JSON(t *testing.T) {
	logger, buf := bufferLogger(t, "json")

	logger.Error("write failed", map[string]interface{}{"path": "datos/jobs.csv"})

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"path":"datos/jobs.csv"`)
}

func TestMultiLogger_DuplicateAdapter(t *testing.T) {
	logger, _ := bufferLogger(t, "text")

	err := logger.AddAdapter(adapters.NewStdoutAdapter("buf", adapters.StdoutConfig{}))
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, InfoLevel, ParseLogLevel("bogus"))
}

func TestFileAdapter_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scraper.log")
	adapter, err := adapters.NewFileAdapter("file", adapters.FileConfig{
		FilePath:   path,
		Format:     "text",
		MaxSize:    1,
		MaxBackups: 1,
		CreateDirs: true,
	})
	require.NoError(t, err)

	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapter))
	logger.Info("first")
	logger.Info("second")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "second")
	assert.NotContains(t, string(data), "first")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
