package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "225.4.5.6", cfg.Multicast.Address)
	assert.Equal(t, uint16(5775), cfg.Multicast.Port)
	assert.Equal(t, 102400, cfg.Multicast.MaxPacketBytes)
	assert.Equal(t, 1, cfg.Multicast.TTL)
	assert.True(t, cfg.Multicast.Loopback)
	assert.Equal(t, 2*time.Second, cfg.Request.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Request.Grace)
	assert.Equal(t, "history.db", cfg.Storage.Path)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
env: prod
multicast:
  address: 239.1.2.3
  port: 6000
  interface: lo
request:
  timeout: 500ms
storage:
  path: /tmp/h.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "239.1.2.3", cfg.Multicast.Address)
	assert.Equal(t, uint16(6000), cfg.Multicast.Port)
	assert.Equal(t, "lo", cfg.Multicast.Interface)
	assert.Equal(t, 500*time.Millisecond, cfg.Request.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Request.Grace)
	assert.Equal(t, "/tmp/h.db", cfg.Storage.Path)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := writeConfig(t, "multicast:\n  port: 7000\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint16(7000), cfg.Multicast.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("MCAST_PORT", "8123")
	t.Setenv("ENV", "dev")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint16(8123), cfg.Multicast.Port)
	assert.Equal(t, "dev", cfg.Env)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
	})
}

func TestMustLoad_File(t *testing.T) {
	path := writeConfig(t, "env: dev\n")

	cfg := MustLoad(path)
	assert.Equal(t, "dev", cfg.Env)
}
