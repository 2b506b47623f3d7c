package embed

import (
	"fmt"
	"strings"
)

// Provider names accepted by NewEmbedder.
const (
	ProviderStatic = "static"
	ProviderOllama = "ollama"
)

// Config selects and configures an embedding model.
type Config struct {
	Provider   string
	Model      string
	OllamaHost string

	// CacheSize wraps the model in a CachedEmbedder; 0 uses DefaultCacheSize,
	// negative disables caching.
	CacheSize int
}

// NewEmbedder builds the configured embedder. Availability is not checked
// here: the reranker probes it once and degrades to identity order.
func NewEmbedder(cfg Config) (Embedder, error) {
	var e Embedder
	switch strings.ToLower(cfg.Provider) {
	case ProviderStatic, "":
		e = NewStaticEmbedder()
	case ProviderOllama:
		oc := DefaultOllamaConfig()
		if cfg.OllamaHost != "" {
			oc.Host = cfg.OllamaHost
		}
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		e = NewOllamaEmbedder(oc)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.CacheSize < 0 {
		return e, nil
	}
	return NewCachedEmbedder(e, cfg.CacheSize), nil
}
