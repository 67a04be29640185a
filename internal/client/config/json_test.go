package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_endpoint_addr":  "http://pos.example:9000",
		"database_file":         "/tmp/store.db",
		"device":                "till-02",
		"sync_interval":         "45s",
		"online_check_interval": "10s",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "http://pos.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, "/tmp/store.db", cfg.DatabaseFile)
		assert.Equal(t, "till-02", cfg.Device)
		assert.Equal(t, 45*time.Second, cfg.SyncInterval)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("no flags, no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			ServerEndpointAddr:  "http://defaults:1234",
			OnlineCheckInterval: 42 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "http://defaults:1234", cfg.ServerEndpointAddr)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("partial JSON leaves other fields alone", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"device": "till-05",
		})
		os.Args = []string{"testbin", "-config", partial}

		cfg := &Config{ServerEndpointAddr: "http://keep:1", SyncInterval: time.Minute}
		parseJson(cfg)

		assert.Equal(t, "till-05", cfg.Device)
		assert.Equal(t, "http://keep:1", cfg.ServerEndpointAddr)
		assert.Equal(t, time.Minute, cfg.SyncInterval)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
