package providers

import (
	"github.com/samber/do/v2"

	"github.com/Edward-Muir/when/internal/cache"
	"github.com/Edward-Muir/when/internal/config"
	"github.com/Edward-Muir/when/internal/metrics"
	"github.com/Edward-Muir/when/internal/ratelimit"
	"github.com/Edward-Muir/when/internal/wiki"
)

// ProvideWikiClient provides the retrying Wikipedia HTTP client.
func ProvideWikiClient(i do.Injector) (*wiki.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)
	rec := do.MustInvoke[*metrics.Recorder](i)

	policy := wiki.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Wikipedia.MaxRetries
	policy.RateLimitWait = cfg.Wikipedia.RateLimitWait
	policy.MaxWait = cfg.Wikipedia.MaxWait

	client := wiki.NewClient(wiki.ClientConfig{
		UserAgent:   cfg.Wikipedia.UserAgent,
		AccessToken: cfg.Wikipedia.AccessToken,
		Timeout:     cfg.Wikipedia.Timeout,
		Policy:      policy,
	},
		wiki.WithMetrics(rec),
		wiki.WithLogger(log.Logger.Logger),
	)

	if !cfg.Authenticated() {
		log.Warn("No WIKI_ACCESS_TOKEN set, using unauthenticated requests")
	}
	return client, nil
}

// ProvidePacer provides the pacer that spaces resolver calls.
func ProvidePacer(i do.Injector) (*ratelimit.Pacer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	pacer := ratelimit.NewPacer(cfg.Wikipedia.RequestDelay)
	log.Debug("pacing resolver calls", "delay", pacer.Interval())
	return pacer, nil
}

// CacheHandle wraps the optional pageview cache with shutdown capability.
// Store is nil when caching is disabled.
type CacheHandle struct {
	Store *cache.Store
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	if h.Store == nil {
		return nil
	}
	return h.Store.Close()
}

// ProvideCache opens the pageview cache when a cache path is configured.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if cfg.Cache.Path == "" {
		log.Debug("pageview cache disabled")
		return &CacheHandle{}, nil
	}

	store, err := cache.Open(cache.Options{
		Path:   cfg.Cache.Path,
		TTL:    cfg.Cache.TTL,
		Logger: log.Logger.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &CacheHandle{Store: store}, nil
}

// ProvideResolver provides the article resolver.
func ProvideResolver(i do.Injector) (*wiki.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)
	client := do.MustInvoke[*wiki.Client](i)
	pacer := do.MustInvoke[*ratelimit.Pacer](i)
	cacheHandle, err := do.Invoke[*CacheHandle](i)
	if err != nil {
		return nil, err
	}

	opts := []wiki.ResolverOption{
		wiki.WithPacer(pacer),
		wiki.WithResolverLogger(log.Logger.Logger),
	}
	if cacheHandle.Store != nil {
		opts = append(opts, wiki.WithCache(cacheHandle.Store))
	}

	return wiki.NewResolver(client, wiki.ResolverConfig{
		SearchURL:    cfg.Wikipedia.SearchURL,
		PageviewsURL: cfg.Wikipedia.PageviewsURL,
	}, opts...), nil
}
