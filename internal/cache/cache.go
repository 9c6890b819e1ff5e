// Package cache keeps pageview totals between runs in a Badger database, so an interrupted
// run can be resumed without asking the API for numbers it already has.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL is how long a cached total stays valid.
const DefaultTTL = 24 * time.Hour

// Options configures a Store.
type Options struct {
	Path     string
	TTL      time.Duration
	InMemory bool // Ignore Path and keep everything in memory
	Logger   *slog.Logger
	Now      func() time.Time
}

// CachedViews is the stored value for one article and window.
type CachedViews struct {
	Views     int64     `json:"views"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the cache database.
func Open(opts Options) (*Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil // Disable Badger's internal logging
	bopts.CompactL0OnClose = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	opts.Logger.Info("pageview cache opened", "path", opts.Path, "in_memory", opts.InMemory, "ttl", opts.TTL)

	return &Store{
		db:     db,
		ttl:    opts.TTL,
		logger: opts.Logger,
		now:    opts.Now,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached entry for key. Returns nil, nil if not found or expired; an expired
// entry is evicted.
func (s *Store) Get(key string) (*CachedViews, error) {
	var cached CachedViews
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cached)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached views: %w", err)
	}

	// Badger drops expired keys lazily; check against our own clock too.
	if s.now().Sub(cached.FetchedAt) > s.ttl {
		if err := s.Delete(key); err != nil {
			s.logger.Warn("failed to evict stale pageviews", "key", key, "error", err)
		}
		return nil, nil
	}
	return &cached, nil
}

// Set stores views for key.
func (s *Store) Set(key string, views int64) error {
	data, err := json.Marshal(CachedViews{Views: views, FetchedAt: s.now()})
	if err != nil {
		return fmt.Errorf("marshal cached views: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(s.ttl))
	})
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Idempotent
		}
		return err
	})
}

// Views implements wiki.Cache. Read errors count as misses.
func (s *Store) Views(key string) (int64, bool) {
	cached, err := s.Get(key)
	if err != nil {
		s.logger.Warn("pageview cache read failed", "key", key, "error", err)
		return 0, false
	}
	if cached == nil {
		return 0, false
	}
	return cached.Views, true
}

// SetViews implements wiki.Cache.
func (s *Store) SetViews(key string, views int64) error {
	return s.Set(key, views)
}
