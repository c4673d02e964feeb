package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flashkv.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	n, err := cfg.Script.MaxBodyBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000*1000), n)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, `{
		"addr": "127.0.0.1:7000",
		"read_timeout": "30s",
		"expire": {"hz": 50},
		"reclaim": {"workers": 2, "zset_threshold": 10},
		"script": {"max_body": "64KiB"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, Duration(30*time.Second), cfg.ReadTimeout)
	assert.Equal(t, 50, cfg.Expire.Hz)
	assert.Equal(t, 20, cfg.Expire.SampleSize)
	assert.Equal(t, 2, cfg.Reclaim.Workers)
	assert.Equal(t, 1024, cfg.Reclaim.QueueSize)
	assert.Equal(t, 10, cfg.Reclaim.ZSetThreshold)
	assert.Equal(t, 64, cfg.Reclaim.ListThreshold)

	n, err := cfg.Script.MaxBodyBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(64*1024), n)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"malformed json", `{"addr": `, false},
		{"bad duration", `{"read_timeout": "soon"}`, false},
		{"zero workers", `{"reclaim": {"workers": 0}}`, true},
		{"negative queue", `{"reclaim": {"queue_size": -1}}`, true},
		{"bad size", `{"script": {"max_body": "lots"}}`, true},
		{"bad log level", `{"log_level": "chatty"}`, true},
		{"negative hz", `{"expire": {"hz": -1}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "pw"
	cfg.ReadTimeout = Duration(5 * time.Second)
	cfg.Script.MaxBody = ""

	path := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"read_timeout": "5s"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEngineAndServerMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Expire.Hz = 0
	cfg.Reclaim.Enabled = false
	cfg.Reclaim.HashThreshold = 7
	cfg.Password = "pw"
	cfg.ReadTimeout = Duration(time.Minute)

	o := cfg.EngineOptions()
	assert.Zero(t, o.ExpireHz)
	assert.False(t, o.ReclaimEnabled)
	assert.Equal(t, 7, o.Thresholds.Hash)

	sc := cfg.ServerConfig()
	assert.Equal(t, "pw", sc.Password)
	assert.Equal(t, time.Minute, sc.ReadTimeout)
	assert.Equal(t, 10000, sc.MaxClients)
}
