package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"

	// OllamaConnectTimeout bounds the availability probe.
	OllamaConnectTimeout = 3 * time.Second

	// OllamaRequestTimeout bounds one embedding request.
	OllamaRequestTimeout = 15 * time.Second
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host  string
	Model string

	// MaxRetries for transient request failures.
	MaxRetries int

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// DefaultOllamaConfig returns the local defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:       DefaultOllamaHost,
		Model:      DefaultOllamaModel,
		MaxRetries: 2,
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaEmbedder calls the Ollama /api/embed endpoint. Requests go through a
// circuit breaker so a stopped server is not contacted on every query.
type OllamaEmbedder struct {
	config  OllamaConfig
	client  *http.Client
	breaker *merrors.CircuitBreaker

	mu     sync.RWMutex
	dims   int
	closed bool
}

// NewOllamaEmbedder creates the client. It does not contact the server;
// call Available to probe it.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	client := cfg.HTTPClient
	if client == nil {
		// No client-level Timeout: per-request contexts bound each call.
		client = &http.Client{Transport: &http.Transport{
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}}
	}

	return &OllamaEmbedder{
		config: cfg,
		client: client,
		breaker: merrors.NewCircuitBreaker("ollama",
			merrors.WithMaxFailures(3),
			merrors.WithResetTimeout(30*time.Second)),
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errClosed
	}

	retry := merrors.DefaultRetryConfig()
	retry.MaxRetries = e.config.MaxRetries
	retry.RetryIf = merrors.IsRetryable

	return merrors.CircuitExecute(e.breaker, func() ([][]float32, error) {
		return merrors.RetryWithResult(ctx, retry, func() ([][]float32, error) {
			return e.doEmbed(ctx, texts)
		})
	})
}

func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, OllamaRequestTimeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, merrors.New(merrors.ErrCodeEmbedderUnavailable, "ollama request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		code := merrors.ErrCodeEmbeddingFailed
		if resp.StatusCode >= 500 {
			code = merrors.ErrCodeEmbedderUnavailable
		}
		return nil, merrors.New(code,
			fmt.Sprintf("ollama embed status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, merrors.New(merrors.ErrCodeEmbeddingFailed, "decode ollama response", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, merrors.New(merrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("ollama returned %d embeddings for %d inputs", len(out.Embeddings), len(texts)), nil)
	}

	vecs := make([][]float32, len(out.Embeddings))
	for i, emb := range out.Embeddings {
		v := make([]float32, len(emb))
		for j, x := range emb {
			v[j] = float32(x)
		}
		vecs[i] = normalizeVector(v)
	}

	e.mu.Lock()
	if e.dims == 0 && len(vecs[0]) > 0 {
		e.dims = len(vecs[0])
	}
	e.mu.Unlock()
	return vecs, nil
}

// Dimensions returns the size of the last embedding seen, 0 before the first call.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

// Available reports whether the server answers /api/tags and lists the model.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, OllamaConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	want := strings.ToLower(e.config.Model)
	for _, m := range tags.Models {
		name := strings.ToLower(m.Name)
		if name == want || strings.HasPrefix(name, want+":") {
			return true
		}
	}
	return false
}

func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}

var _ Embedder = (*OllamaEmbedder)(nil)
