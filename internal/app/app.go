// Package app wires configuration into a running resolver: it builds the
// sources, the registry, the shared cache and the resolver, and owns their
// lifecycle.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/registry"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/resolver"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/source"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/cache"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/config"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/internal/logging"
)

// App is the process-scoped resolver context.
type App struct {
	Config   *config.Config
	Registry *registry.Registry
	Cache    *cache.Cache[resolver.Entry]
	Resolver *resolver.Resolver

	logger *slog.Logger
}

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
	now        func() time.Time
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger used by the app and the resolver.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient sets the HTTP client shared by remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock sets the cache clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds an App from cfg. The caller must Close it.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: logging.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	ttls, err := cfg.TTLTable()
	if err != nil {
		return nil, err
	}

	reg, err := registry.New()
	if err != nil {
		return nil, err
	}
	for _, sc := range cfg.Sources {
		src, err := BuildSource(sc, cfg.HTTP, o.httpClient, o.logger)
		if err != nil {
			return nil, errors.Wrapf(err, "source %s", sc.Name)
		}
		if err := reg.Register(src); err != nil {
			return nil, err
		}
	}

	c := cache.New[resolver.Entry](cache.Config{
		DefaultTTL:    cfg.Cache.DefaultTTL,
		SweepInterval: cfg.Cache.SweepInterval,
		Now:           o.now,
	})
	res := resolver.New(reg, c,
		resolver.WithTTLs(ttls),
		resolver.WithMaxConcurrency(cfg.MaxConcurrency),
		resolver.WithLogger(o.logger),
	)

	o.logger.Debug("app initialized", "sources", reg.Len(), "default_source", cfg.DefaultSource)
	return &App{Config: cfg, Registry: reg, Cache: c, Resolver: res, logger: o.logger}, nil
}

// BuildSource constructs the source described by sc.
func BuildSource(sc config.SourceConfig, hc config.HTTPConfig, client *http.Client, logger *slog.Logger) (source.Source, error) {
	switch sc.Provider {
	case source.ProviderLocal:
		return buildLocal(sc, logger)
	case source.ProviderWldeh:
		return source.NewWldeh(sc.Name, sc.Description, sc.Version, remoteOptions(sc, hc, client)...), nil
	case source.ProviderBolls:
		return source.NewBolls(sc.Name, sc.Description, sc.Version, remoteOptions(sc, hc, client)...), nil
	default:
		return nil, errors.NewUnsupported("provider", sc.Provider)
	}
}

func remoteOptions(sc config.SourceConfig, hc config.HTTPConfig, client *http.Client) []source.Option {
	return []source.Option{
		source.WithBaseURL(sc.BaseURL),
		source.WithUserAgent(hc.UserAgent),
		source.WithTimeout(hc.Timeout),
		source.WithHTTPClient(client),
	}
}

func buildLocal(sc config.SourceConfig, logger *slog.Logger) (source.Source, error) {
	if sc.Dataset == "" {
		logger.Warn("local source has no dataset; every lookup will be not found", "source", sc.Name)
		return source.NewLocal(sc.Name, sc.Description, nil), nil
	}

	start := time.Now()
	d, err := source.LoadDataset(sc.Dataset)
	if err != nil {
		return nil, err
	}
	if sc.Digest != "" {
		if err := d.VerifyDigest(sc.Digest); err != nil {
			return nil, err
		}
	}
	logger.Info("dataset loaded",
		"source", sc.Name,
		"path", sc.Dataset,
		"verses", d.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return source.NewLocal(sc.Name, sc.Description, d), nil
}

// Descriptors lists the registered sources, cached as the "sources" listing.
func (a *App) Descriptors(ctx context.Context) ([]source.Descriptor, error) {
	return resolver.Listing(ctx, a.Resolver, "sources", func(context.Context) ([]source.Descriptor, error) {
		return a.Registry.Descriptors(), nil
	})
}

// Close stops the cache sweeper.
func (a *App) Close() error {
	return a.Cache.Close()
}
