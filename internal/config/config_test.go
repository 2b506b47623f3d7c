package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1.5, cfg.Search.K1)
	assert.Equal(t, 0.75, cfg.Search.B)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 10, cfg.Search.MinCandidates)
	assert.Equal(t, "snowball", cfg.Search.Stemmer)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.False(t, cfg.Rerank.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// Given: a config file setting a subset of keys
	dir := t.TempDir()
	content := `
namespace: acme-pizza
cache:
  backend: sqlite
search:
  stemmer: porter
rerank:
  enabled: true
  top_n: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".menusearch.yaml"), []byte(content), 0o644))

	// When: loading
	cfg, err := Load(dir, "")

	// Then: file values win and untouched keys keep defaults
	require.NoError(t, err)
	assert.Equal(t, "acme-pizza", cfg.Namespace)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 64, cfg.Cache.LRUSize)
	assert.Equal(t, "porter", cfg.Search.Stemmer)
	assert.Equal(t, 1.5, cfg.Search.K1)
	assert.True(t, cfg.Rerank.Enabled)
	assert.Equal(t, 5, cfg.Rerank.TopN)
	assert.Equal(t, "static", cfg.Rerank.Provider)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0o644))

	_, err := Load("", path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".menusearch.yml"), []byte("namespace: from-file\n"), 0o644))
	t.Setenv("MENUSEARCH_NAMESPACE", "from-env")
	t.Setenv("MENUSEARCH_RRF_CONSTANT", "30")
	t.Setenv("MENUSEARCH_RERANK", "true")
	t.Setenv("MENUSEARCH_CACHE_BACKEND", "redis")

	cfg, err := Load(dir, "")

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Namespace)
	assert.Equal(t, 30, cfg.Search.RRFConstant)
	assert.True(t, cfg.Rerank.Enabled)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoad_EnvIgnoresInvalidNumber(t *testing.T) {
	t.Setenv("MENUSEARCH_RRF_CONSTANT", "-4")

	cfg, err := Load(t.TempDir(), "")

	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty namespace", func(c *Config) { c.Namespace = " " }, "namespace"},
		{"uppercase namespace", func(c *Config) { c.Namespace = "Acme" }, "namespace"},
		{"namespace with space", func(c *Config) { c.Namespace = "acme pizza" }, "namespace"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "s3" }, "cache.backend"},
		{"b out of range", func(c *Config) { c.Search.B = 1.5 }, "search.b"},
		{"zero rrf", func(c *Config) { c.Search.RRFConstant = 0 }, "rrf_constant"},
		{"zero top n", func(c *Config) { c.Search.DefaultTopN = 0 }, "default_top_n"},
		{"unknown stemmer", func(c *Config) { c.Search.Stemmer = "lancaster" }, "search.stemmer"},
		{"unknown embedder", func(c *Config) { c.Rerank.Provider = "mlx" }, "rerank.provider"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".menusearch.yaml")
	cfg := NewConfig()
	cfg.Namespace = "acme"
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load("", path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
