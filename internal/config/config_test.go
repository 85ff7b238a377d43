package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "volpack.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 144, cfg.Resize)
	assert.Equal(t, 0.85, cfg.Split)
	assert.Equal(t, uint32(816), cfg.Seed)
	assert.Equal(t, filepath.Join("../../data/decathlon", "144x144", "decathlon_brats.h5"), cfg.OutputPath())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeTOML(t, `
data_path = "/data/Task04_Hippocampus"
resize = 32
no_clobber = true

[compression]
codec = "zstd"
level = 7
shuffle = true

[log]
logfile = "/tmp/volpack.log"
max_log_size = 10
verbose = true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/Task04_Hippocampus", cfg.DataPath)
	assert.Equal(t, 32, cfg.Resize)
	assert.True(t, cfg.NoClobber)
	assert.Equal(t, 0.85, cfg.Split, "unset keys keep defaults")
	assert.Equal(t, "decathlon_brats.h5", cfg.OutputFilename)
	assert.Equal(t, CodecZstd, cfg.Compression.Codec)
	assert.Equal(t, 7, cfg.Compression.Level)
	assert.True(t, cfg.Compression.Shuffle)
	assert.Equal(t, 10, cfg.Log.MaxSize)
	assert.Equal(t, 30, cfg.Log.MaxAge)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	p := writeTOML(t, "resize = 64\nresize_z = 32\n")
	_, err := Load(p)
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Contains(t, err.Error(), "resize_z")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeTOML(t, "resize = \"big\""))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero resize", func(c *Config) { c.Resize = 0 }},
		{"split above one", func(c *Config) { c.Split = 1.5 }},
		{"negative split", func(c *Config) { c.Split = -0.1 }},
		{"no filename", func(c *Config) { c.OutputFilename = "" }},
		{"bad codec", func(c *Config) { c.Compression.Codec = "bzip2" }},
		{"gzip level", func(c *Config) { c.Compression.Level = 12 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	edge := Default()
	edge.Split = 1
	assert.NoError(t, edge.Validate())
	edge.Split = 0
	assert.NoError(t, edge.Validate())
}
