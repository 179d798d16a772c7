// Package settings provides a read-through cache of per-subscriber
// organisation settings.
//
// Lookups that miss the cache go to a Loader (the SQLite store in
// production). Entries expire after a fixed TTL and the cache holds at most
// a fixed number of subscribers; both are set by the caller.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCapacity = 128
	DefaultTTL      = 24 * time.Hour
)

// ErrUnknownSubscriber is returned by loaders for subscribers they do not know.
var ErrUnknownSubscriber = errors.New("unknown subscriber")

// Org holds the settings other components read per subscriber.
type Org struct {
	SubscriberID int64
	Name         string
	// APILimit is the default page size for list endpoints. Zero disables
	// pagination.
	APILimit int
}

// Loader fetches settings on a cache miss.
type Loader interface {
	OrgSettings(ctx context.Context, subscriberID int64) (Org, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, subscriberID int64) (Org, error)

func (f LoaderFunc) OrgSettings(ctx context.Context, subscriberID int64) (Org, error) {
	return f(ctx, subscriberID)
}

// Cache is safe for concurrent use.
type Cache struct {
	loader Loader
	lru    *expirable.LRU[int64, Org]
}

// NewCache builds a cache of at most capacity entries living ttl each.
func NewCache(loader Loader, capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		loader: loader,
		lru:    expirable.NewLRU[int64, Org](capacity, nil, ttl),
	}
}

// Get returns cached settings or loads and caches them.
func (c *Cache) Get(ctx context.Context, subscriberID int64) (Org, error) {
	if org, ok := c.lru.Get(subscriberID); ok {
		return org, nil
	}
	org, err := c.loader.OrgSettings(ctx, subscriberID)
	if err != nil {
		return Org{}, fmt.Errorf("load org settings for subscriber %d: %w", subscriberID, err)
	}
	c.lru.Add(subscriberID, org)
	return org, nil
}

// Invalidate drops one subscriber's entry.
func (c *Cache) Invalidate(subscriberID int64) {
	c.lru.Remove(subscriberID)
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
