package menu

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
)

// Provider supplies catalog snapshots.
type Provider interface {
	// OrderTypes lists the known order types.
	OrderTypes(ctx context.Context) ([]string, error)

	// Categories returns the searchable names of one order type, in
	// catalog order.
	Categories(ctx context.Context, orderType string) ([]string, error)
}

// Option configures the built-in providers.
type Option func(*options)

type options struct {
	items  bool
	retry  merrors.RetryConfig
	logger *slog.Logger
}

// WithItems makes the provider return item names instead of category names.
func WithItems(items bool) Option {
	return func(o *options) { o.items = items }
}

// WithRetry overrides the retry policy for catalog reads.
func WithRetry(cfg merrors.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{retry: merrors.DefaultRetryConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// StaticProvider serves an in-memory catalog. Replace swaps it atomically.
type StaticProvider struct {
	mu      sync.RWMutex
	catalog *Catalog
	items   bool
}

// NewStaticProvider creates a provider over catalog.
func NewStaticProvider(catalog *Catalog, opts ...Option) *StaticProvider {
	o := buildOptions(opts)
	if catalog == nil {
		catalog = &Catalog{}
	}
	return &StaticProvider{catalog: catalog, items: o.items}
}

// Replace installs a new catalog snapshot.
func (p *StaticProvider) Replace(catalog *Catalog) {
	p.mu.Lock()
	p.catalog = catalog
	p.mu.Unlock()
}

// OrderTypes implements Provider.
func (p *StaticProvider) OrderTypes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog.OrderTypeNames(), nil
}

// Categories implements Provider.
func (p *StaticProvider) Categories(ctx context.Context, orderType string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog.Documents(orderType, p.items)
}

// FileProvider reads a YAML or JSON catalog from disk on every call, so
// each index build sees the current file.
type FileProvider struct {
	path string
	opts options
}

// NewFileProvider creates a provider over the catalog file at path.
func NewFileProvider(path string, opts ...Option) *FileProvider {
	return &FileProvider{path: path, opts: buildOptions(opts)}
}

// Path returns the catalog file path.
func (p *FileProvider) Path() string { return p.path }

// OrderTypes implements Provider.
func (p *FileProvider) OrderTypes(ctx context.Context) ([]string, error) {
	c, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.OrderTypeNames(), nil
}

// Categories implements Provider.
func (p *FileProvider) Categories(ctx context.Context, orderType string) ([]string, error) {
	c, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Documents(orderType, p.opts.items)
}

// Load reads and parses the catalog. Transient read errors are retried;
// a missing or malformed file fails immediately with ERR_204.
func (p *FileProvider) Load(ctx context.Context) (*Catalog, error) {
	retry := p.opts.retry
	retry.RetryIf = merrors.IsRetryable

	return merrors.RetryWithResult(ctx, retry, func() (*Catalog, error) {
		data, err := os.ReadFile(p.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, merrors.New(merrors.ErrCodeCatalogFile, "catalog file not found", err).
				WithDetail("path", p.path).
				WithSuggestion("set catalog.path or MENUSEARCH_CATALOG")
		}
		if err != nil {
			p.opts.logger.Warn("catalog_read_failed",
				slog.String("path", p.path),
				slog.String("error", err.Error()))
			return nil, merrors.ProviderError("cannot read catalog", err).WithDetail("path", p.path)
		}
		c, err := ParseCatalog(data)
		if err != nil {
			var me *merrors.MenuError
			if errors.As(err, &me) {
				me.WithDetail("path", p.path)
			}
			return nil, err
		}
		return c, nil
	})
}
