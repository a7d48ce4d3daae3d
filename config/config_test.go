package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	yamlContent := `
vfs:
  name: "webvfs"
  make_default: true
  sector_size: 4096
  denied_names: ["*.lock"]
durable:
  dir: "/tmp/durable"
  compression: zstd
`
	cfg, err := Load(strings.NewReader(yamlContent))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Check overridden values
	assert.Equal(t, "webvfs", cfg.VFS.Name)
	assert.True(t, cfg.VFS.MakeDefault)
	assert.Equal(t, 4096, cfg.VFS.SectorSize)
	assert.Equal(t, []string{"*.lock"}, cfg.VFS.DeniedNames)
	assert.Equal(t, "/tmp/durable", cfg.Durable.Dir)
	assert.Equal(t, "zstd", cfg.Durable.Compression)

	// Check defaults that were not overridden
	assert.Equal(t, "/pagevfs/", cfg.VFS.PathPrefix)
	assert.Equal(t, 4, cfg.Durable.Concurrency)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoad_EmptyReader(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "pagevfs", cfg.VFS.Name)
	assert.Equal(t, 32, cfg.VFS.SectorSize)
}

func TestLoad_InvalidYAML(t *testing.T) {
	yamlContent := `
vfs:
  name: "x"
  this: is: invalid: yaml
`
	_, err := Load(strings.NewReader(yamlContent))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config yaml")
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want string
	}{
		{"UnknownBackend", "storage:\n  backend: s3\n", "unknown storage backend"},
		{"DurableNeedsMemory", "storage:\n  backend: dir\n", "requires the memory backend"},
		{"DirNeedsDataDir", "storage:\n  backend: dir\n  data_dir: \"\"\ndurable:\n  enabled: false\n", "data_dir is required"},
		{"UnknownProtocol", "tracing:\n  protocol: udp\n", "unknown tracing protocol"},
		{"EmptyName", "vfs:\n  name: \"\"\n", "vfs.name"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	cfg, err := Load(strings.NewReader("storage:\n  backend: dir\n  data_dir: /tmp/x\ndurable:\n  enabled: false\n"))
	require.NoError(t, err)
	assert.Equal(t, "dir", cfg.Storage.Backend)
}

func TestLoadConfig_FileIntegration(t *testing.T) {
	t.Run("FileExists", func(t *testing.T) {
		yamlContent := `
logging:
  level: debug
`
		tempDir := t.TempDir()
		configPath := filepath.Join(tempDir, "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("FileDoesNotExist", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "non_existent_config.yaml")
		cfg, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Logging.Level)
	})
}

func TestParseDuration(t *testing.T) {
	// Use a logger that discards output for this test
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defaultDuration := 10 * time.Second

	testCases := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{"ValidSeconds", "5s", 5 * time.Second},
		{"ValidMilliseconds", "500ms", 500 * time.Millisecond},
		{"EmptyString", "", defaultDuration},
		{"ZeroString", "0", defaultDuration},
		{"InvalidString", "5x", defaultDuration},
		{"JustNumber", "10", defaultDuration},
		{"NilLogger", "5x", defaultDuration}, // Should not panic with nil logger
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var testLogger *slog.Logger
			if tc.name != "NilLogger" {
				testLogger = logger
			}
			assert.Equal(t, tc.expected, ParseDuration(tc.input, defaultDuration, testLogger))
		})
	}
}
