package stress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	err := os.WriteFile(path, []byte("workers: 8\nmax-tries: 16\nhasher: xxh3\nstrict: true\n"), 0o600)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Workers = 8
	want.MaxTries = 16
	want.Hasher = "xxh3"
	want.Strict = true
	require.Equal(t, want, cfg)
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.json")
	err := os.WriteFile(path, []byte(`{"size": 64, "rehash": "golden", "increment": 5}`), 0o600)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Size)
	require.Equal(t, "golden", cfg.Rehash)
	require.Equal(t, int64(5), cfg.Increment)
	require.Equal(t, DefaultConfig().Workers, cfg.Workers)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	err := os.WriteFile(path, []byte("workers: 8\nkeys: 10\n"), 0o600)
	require.NoError(t, err)

	t.Setenv("FIXEDMAP_WORKERS", "4")
	t.Setenv("FIXEDMAP_MAX_TRIES", "8")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, 8, cfg.MaxTries)
	require.Equal(t, 10, cfg.Keys)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Rehash: "nope"}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "workers must be positive")
	require.Contains(t, err.Error(), `unknown rehash "nope"`)
}

func TestStrategiesByName(t *testing.T) {
	for _, name := range []string{"", "fnv", "xxhash", "xxh3"} {
		h, err := HasherByName(name)
		require.NoError(t, err)
		require.NotNil(t, h)
	}
	for _, name := range []string{"", "fnv", "fnvword", "golden"} {
		r, err := RehashByName(name)
		require.NoError(t, err)
		require.NotNil(t, r)
	}
	_, err := HasherByName("sha1")
	require.Error(t, err)
	_, err = RehashByName("linear")
	require.Error(t, err)
}
