// Package config loads menusearch configuration from YAML with environment
// variable overrides.
//
// Precedence, lowest to highest: built-in defaults, the config file
// (.menusearch.yaml in the working directory, or an explicit --config path),
// then MENUSEARCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/menusearch/internal/store"
)

// FileNames are the config file names looked up in the working directory.
var FileNames = []string{".menusearch.yaml", ".menusearch.yml"}

// Config represents the complete menusearch configuration.
type Config struct {
	// Namespace identifies the tenant whose catalog is indexed (e.g. a restaurant id).
	Namespace string        `yaml:"namespace" json:"namespace"`
	Cache     CacheConfig   `yaml:"cache" json:"cache"`
	Search    SearchConfig  `yaml:"search" json:"search"`
	Rerank    RerankConfig  `yaml:"rerank" json:"rerank"`
	Catalog   CatalogConfig `yaml:"catalog" json:"catalog"`
	Logging   LoggingConfig `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig `yaml:"metrics" json:"metrics"`
}

// CacheConfig selects where built indexes are persisted.
type CacheConfig struct {
	// Backend is one of file, redis, sqlite, memory.
	Backend    string `yaml:"backend" json:"backend"`
	Dir        string `yaml:"dir" json:"dir"`
	RedisURL   string `yaml:"redis_url" json:"redis_url"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
	// LRUSize bounds the number of decoded indexes kept in memory.
	LRUSize int `yaml:"lru_size" json:"lru_size"`
	// MemoTTL expires in-memory indexes so catalog edits are picked up
	// without a sync. 0 keeps them until evicted.
	MemoTTL time.Duration `yaml:"memo_ttl" json:"memo_ttl"`
}

// SearchConfig holds BM25 and fusion parameters.
type SearchConfig struct {
	K1            float64 `yaml:"k1" json:"k1"`
	B             float64 `yaml:"b" json:"b"`
	RRFConstant   int     `yaml:"rrf_constant" json:"rrf_constant"`
	DefaultTopN   int     `yaml:"default_top_n" json:"default_top_n"`
	MinCandidates int     `yaml:"min_candidates" json:"min_candidates"`
	// Stemmer is one of snowball, porter, none.
	Stemmer string `yaml:"stemmer" json:"stemmer"`
}

// RerankConfig configures the optional semantic reranker.
type RerankConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	TopN       int    `yaml:"top_n" json:"top_n"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
}

// CatalogConfig points at the catalog source.
type CatalogConfig struct {
	Path string `yaml:"path" json:"path"`
	// Items indexes item names instead of category names.
	Items bool `yaml:"items" json:"items"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	JSON      bool   `yaml:"json" json:"json"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Namespace: "default",
		Cache: CacheConfig{
			Backend:    "file",
			Dir:        filepath.Join("data", "indexes"),
			RedisURL:   "redis://localhost:6379/0",
			SQLitePath: filepath.Join("data", "indexes.db"),
			LRUSize:    64,
		},
		Search: SearchConfig{
			K1:            1.5,
			B:             0.75,
			RRFConstant:   60,
			DefaultTopN:   5,
			MinCandidates: 10,
			Stemmer:       "snowball",
		},
		Rerank: RerankConfig{
			Provider:   "static",
			Model:      "nomic-embed-text",
			OllamaHost: "http://localhost:11434",
			TopN:       20,
			CacheSize:  1024,
		},
		Catalog: CatalogConfig{
			Path: "catalog.yaml",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
	}
}

// Load builds the configuration. An explicit path must exist; otherwise the
// first of FileNames found in dir is used, and a missing file means defaults.
func Load(dir, explicit string) (*Config, error) {
	cfg := NewConfig()

	path := explicit
	if path == "" {
		path = findFile(dir)
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findFile(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadYAML decodes path over the current values, so keys absent from the
// file keep their defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MENUSEARCH_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv("MENUSEARCH_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("MENUSEARCH_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("MENUSEARCH_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("MENUSEARCH_SQLITE_PATH"); v != "" {
		c.Cache.SQLitePath = v
	}
	if v := os.Getenv("MENUSEARCH_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("MENUSEARCH_STEMMER"); v != "" {
		c.Search.Stemmer = v
	}
	if v := os.Getenv("MENUSEARCH_RERANK"); v != "" {
		c.Rerank.Enabled = parseBool(v)
	}
	if v := os.Getenv("MENUSEARCH_EMBEDDER"); v != "" {
		c.Rerank.Provider = v
	}
	if v := os.Getenv("MENUSEARCH_OLLAMA_HOST"); v != "" {
		c.Rerank.OllamaHost = v
	}
	if v := os.Getenv("MENUSEARCH_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("MENUSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MENUSEARCH_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
		c.Metrics.Enabled = true
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if !store.ValidNamespace(c.Namespace) {
		return fmt.Errorf("namespace must be lowercase letters, digits, '-' or '_', got %q", c.Namespace)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case "file", "redis", "sqlite", "memory":
	default:
		return fmt.Errorf("cache.backend must be 'file', 'redis', 'sqlite' or 'memory', got %s", c.Cache.Backend)
	}
	if c.Cache.LRUSize < 0 {
		return fmt.Errorf("cache.lru_size must be non-negative, got %d", c.Cache.LRUSize)
	}
	if c.Cache.MemoTTL < 0 {
		return fmt.Errorf("cache.memo_ttl must be non-negative, got %s", c.Cache.MemoTTL)
	}

	if c.Search.K1 < 0 {
		return fmt.Errorf("search.k1 must be non-negative, got %f", c.Search.K1)
	}
	if c.Search.B < 0 || c.Search.B > 1 {
		return fmt.Errorf("search.b must be between 0 and 1, got %f", c.Search.B)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.DefaultTopN <= 0 {
		return fmt.Errorf("search.default_top_n must be positive, got %d", c.Search.DefaultTopN)
	}
	if c.Search.MinCandidates < 0 {
		return fmt.Errorf("search.min_candidates must be non-negative, got %d", c.Search.MinCandidates)
	}
	switch strings.ToLower(c.Search.Stemmer) {
	case "snowball", "porter", "none", "":
	default:
		return fmt.Errorf("search.stemmer must be 'snowball', 'porter' or 'none', got %s", c.Search.Stemmer)
	}

	switch strings.ToLower(c.Rerank.Provider) {
	case "static", "ollama":
	default:
		return fmt.Errorf("rerank.provider must be 'static' or 'ollama', got %s", c.Rerank.Provider)
	}
	if c.Rerank.TopN < 0 {
		return fmt.Errorf("rerank.top_n must be non-negative, got %d", c.Rerank.TopN)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn' or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
