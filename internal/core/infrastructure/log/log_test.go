package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logconfig "github.com/weisyn/wager/internal/config/log"
	"github.com/weisyn/wager/pkg/types"
)

func TestFileLoggerWritesJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "wager.log")

	cfg := logconfig.New(&logconfig.LogOptions{
		Level:      DebugLevel,
		FilePath:   logPath,
		ToConsole:  false,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	logger, err := New(cfg)
	require.NoError(t, err)

	logger.With("module", "submit", "attempt", 2).Info("submission attempt")
	logger.Debugf("debug %d", 7)
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "submission attempt", entry["message"])
	assert.Equal(t, "submit", entry["module"])
	assert.EqualValues(t, 2, entry["attempt"])
	assert.Contains(t, lines[1], "debug 7")
}

func TestLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "wager.log")
	level := "warn"
	cfg := logconfig.New(&types.UserLogConfig{Level: &level, FilePath: &logPath})

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("visible")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), "visible")
}

func TestUserConfigOverrides(t *testing.T) {
	path := "/tmp/x.log"
	size := 3
	cfg := logconfig.New(&types.UserLogConfig{FilePath: &path, MaxSize: &size})

	assert.Equal(t, path, cfg.GetFilePath())
	assert.False(t, cfg.IsConsoleEnabled(), "file path disables console unless asked")
	assert.Equal(t, 3, cfg.GetMaxSize())
	assert.Equal(t, "info", cfg.GetLevel())
}

func TestNopAndWithModule(t *testing.T) {
	l := WithModule(NewNop(), "status")
	require.NotNil(t, l)
	l.Infof("nothing %s", "here")
	assert.NotNil(t, l.GetZapLogger())
}

func TestToZapFieldsOddArgs(t *testing.T) {
	fields := toZapFields("a", 1, "dangling")
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Key)
}
