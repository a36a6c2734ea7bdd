package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Backend.BaseURL, cfg.Backend.BaseURL)

	timeout, err := cfg.Backend.GetTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  base_url: http://cms.example.com
  channel_id: 4
  timeout: 5s
`), 0644))

	t.Setenv("TAGSYNC_SID", "abc")
	t.Setenv("TAGSYNC_NODE_ID", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://cms.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 4, cfg.Backend.ChannelID)
	assert.Equal(t, "abc", cfg.Backend.SID)
	assert.Equal(t, 9, cfg.Backend.NodeID)

	timeout, err := cfg.Backend.GetTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  timeout: soon\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "backend.timeout")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tagsync.yaml")
	cfg := DefaultConfig()
	cfg.Backend.SID = "s1"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s1", loaded.Backend.SID)
}
