package wiki

import (
	"context"
	"log/slog"

	"github.com/Edward-Muir/when/internal/ratelimit"
)

// Default API endpoints.
const (
	DefaultSearchURL    = "https://en.wikipedia.org/w/api.php"
	DefaultPageviewsURL = "https://wikimedia.org/api/rest_v1/metrics/pageviews/per-article"
)

// Cache stores pageview totals between runs. Implementations must be safe to call with keys
// they have never seen.
type Cache interface {
	Views(key string) (int64, bool)
	SetViews(key string, views int64) error
}

// Resolution is the article an event name resolved to.
type Resolution struct {
	Title      string // Selected article title with spaces
	Views      int64  // Summed user views over the trailing window
	URL        string // Canonical article URL, underscore form
	Candidates []Candidate
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	SearchURL    string
	PageviewsURL string
	SearchLimit  int
}

// Resolver maps event names to articles and their popularity.
//
// Every public call that reaches the network waits on the pacer first and re-arms it when it
// returns, so the pacer interval separates the end of one call from the start of the next
// whether the call succeeded or not.
type Resolver struct {
	client       *Client
	searchURL    string
	pageviewsURL string
	limit        int

	pacer  *ratelimit.Pacer
	clock  ratelimit.Clock
	cache  Cache
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPacer spaces network-bound calls.
func WithPacer(p *ratelimit.Pacer) ResolverOption {
	return func(r *Resolver) { r.pacer = p }
}

// WithWindowClock sets the clock the pageview window is computed from.
func WithWindowClock(c ratelimit.Clock) ResolverOption {
	return func(r *Resolver) { r.clock = c }
}

// WithCache enables pageview caching.
func WithCache(c Cache) ResolverOption {
	return func(r *Resolver) { r.cache = c }
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver on top of client.
func NewResolver(client *Client, cfg ResolverConfig, opts ...ResolverOption) *Resolver {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.PageviewsURL == "" {
		cfg.PageviewsURL = DefaultPageviewsURL
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}

	r := &Resolver{
		client:       client,
		searchURL:    cfg.SearchURL,
		pageviewsURL: cfg.PageviewsURL,
		limit:        cfg.SearchLimit,
		pacer:        ratelimit.NewPacer(0),
		clock:        ratelimit.SystemClock{},
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Window returns the pageview window for the current time.
func (r *Resolver) Window() Window {
	return WindowAt(r.clock.Now())
}

// Search returns up to the configured number of candidates for query, best first.
// No hits yields ErrNoResults.
func (r *Resolver) Search(ctx context.Context, query string) ([]Candidate, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	defer r.pacer.Done()
	return r.search(ctx, query)
}

// Pageviews returns the trailing-window view total of title, bypassing the cache.
// A missing article yields ErrNotFound.
func (r *Resolver) Pageviews(ctx context.Context, title string) (int64, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return 0, err
	}
	defer r.pacer.Done()
	return r.pageviews(ctx, title, r.Window())
}

// Resolve searches for name, takes the top-ranked candidate and fetches its pageviews.
// Lower-ranked candidates are returned for reporting only.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Resolution, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	defer r.pacer.Done()

	candidates, err := r.search(ctx, name)
	if err != nil {
		return nil, err
	}
	top := candidates[0]

	views, err := r.cachedViews(ctx, top.Title, r.Window())
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Title:      top.Title,
		Views:      views,
		URL:        ArticleURL(top.Title),
		Candidates: candidates,
	}, nil
}

// Refetch returns the pageviews of a known title, as after a correction. A cache hit makes
// no request and does not wait on the pacer.
func (r *Resolver) Refetch(ctx context.Context, title string) (*Resolution, error) {
	w := r.Window()
	if views, ok := r.cacheLookup(title, w); ok {
		return &Resolution{Title: title, Views: views, URL: ArticleURL(title)}, nil
	}

	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	defer r.pacer.Done()
	views, err := r.cachedViews(ctx, title, w)
	if err != nil {
		return nil, err
	}
	return &Resolution{Title: title, Views: views, URL: ArticleURL(title)}, nil
}

func (r *Resolver) cachedViews(ctx context.Context, title string, w Window) (int64, error) {
	if views, ok := r.cacheLookup(title, w); ok {
		return views, nil
	}

	views, err := r.pageviews(ctx, title, w)
	if err != nil {
		return 0, err
	}

	if r.cache != nil {
		if err := r.cache.SetViews(w.CacheKey(title), views); err != nil {
			r.logger.Warn("failed to cache pageviews", "title", title, "error", err)
		}
	}
	return views, nil
}

func (r *Resolver) cacheLookup(title string, w Window) (int64, bool) {
	if r.cache == nil {
		return 0, false
	}
	views, ok := r.cache.Views(w.CacheKey(title))
	if ok {
		r.logger.Debug("pageviews cache hit", "title", title)
	}
	return views, ok
}
