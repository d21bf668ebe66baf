package translate

import (
	"context"

	"go-archive-app/internal/cache"
	"go-archive-app/internal/logger"
)

// Store is the part of the cache the translator needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Cached memoizes another Translator. Cache errors never fail a translation.
type Cached struct {
	next       Translator
	store      Store
	tone       string
	complexity string
	log        logger.Logger
}

// NewCached wraps next. tone and complexity are part of the key because they change
// the output for the same source.
func NewCached(next Translator, store Store, tone, complexity string, log logger.Logger) *Cached {
	if log == nil {
		log = logger.Nop()
	}
	return &Cached{next: next, store: store, tone: tone, complexity: complexity, log: log}
}

// Translate returns a cached result when present, otherwise calls through and stores
// the answer.
func (c *Cached) Translate(ctx context.Context, html string, target Language) (string, error) {
	key := cache.Key(string(target), c.tone, c.complexity, html)
	b, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Error(err, "Failed to read translation cache")
	} else if b != nil {
		return string(b), nil
	}
	out, err := c.next.Translate(ctx, html, target)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, key, []byte(out)); err != nil {
		c.log.Error(err, "Failed to cache translation")
	}
	return out, nil
}
