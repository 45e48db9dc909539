package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadPrefersEnvironment(t *testing.T) {
	assert := require.New(t)

	appDir := t.TempDir()
	t.Setenv("APP_DIR", appDir)
	t.Setenv("PORT", "9999")
	t.Setenv("SYNC_ROOTS", "/a, /b ,")

	cfg, err := Load("test")
	assert.NoError(err)

	assert.Equal("9999", cfg.GetPort())
	assert.Equal(appDir, cfg.GetAppDir())
	assert.Equal(filepath.Join(appDir, "buzee.db"), cfg.GetDBPath())
	assert.Equal(filepath.Join(appDir, "search_index"), cfg.GetIndexPath())
	assert.Equal(filepath.Join(appDir, "runs.db"), cfg.GetKVDBPath())
	assert.Equal([]string{"/a", "/b"}, cfg.GetSyncRoots())
}

func TestLoadReadsYAML(t *testing.T) {
	assert := require.New(t)

	cfg, err := Load("test")
	assert.NoError(err)

	assert.Equal("8762", cfg.GetPort())
	assert.Equal("127.0.0.1", cfg.GetHost())
	assert.Equal(10*time.Second, cfg.GetOCRTimeout())
	assert.Equal("debug", cfg.GetLogLevel())
	assert.Equal("", cfg.GetLogFilePath())
	assert.False(cfg.IsSchedulerEnabled())
}

func TestLoadMissingEnvFallsBackToDefaults(t *testing.T) {
	assert := require.New(t)

	cfg, err := Load("does-not-exist")
	assert.NoError(err)

	assert.Equal(defaultPort, cfg.GetPort())
	assert.Equal(defaultSyncInterval, cfg.GetSyncInterval())
	assert.Equal(defaultOCRCommand, cfg.GetOCRCommand())
	assert.True(cfg.IsSchedulerEnabled())
}
