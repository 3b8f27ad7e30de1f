package plan

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultCacheExpiration      = 10 * time.Minute
	DefaultCacheCleanupInterval = 30 * time.Minute
)

// CachedStorage is a read-through cache in front of another Storage.
// Writes go to the backing storage first and then refresh the cache, so a
// failed write never leaves a cached plan the backend does not hold.
// List always reads the backend.
type CachedStorage struct {
	backend Storage
	cache   *gocache.Cache
}

// NewCachedStorage wraps backend with a cache whose entries expire after
// expiration and are swept every cleanupInterval.
func NewCachedStorage(backend Storage, expiration, cleanupInterval time.Duration) *CachedStorage {
	return &CachedStorage{
		backend: backend,
		cache:   gocache.New(expiration, cleanupInterval),
	}
}

func (c *CachedStorage) Add(ctx context.Context, plan *Plan, override bool) error {
	if err := c.backend.Add(ctx, plan, override); err != nil {
		return err
	}
	c.cache.SetDefault(plan.ID, plan.Clone())
	return nil
}

func (c *CachedStorage) Delete(ctx context.Context, id string) error {
	if err := c.backend.Delete(ctx, id); err != nil {
		return err
	}
	c.cache.Delete(id)
	return nil
}

func (c *CachedStorage) List(ctx context.Context) ([]*Plan, error) {
	return c.backend.List(ctx)
}

func (c *CachedStorage) Get(ctx context.Context, id string) (*Plan, error) {
	if value, found := c.cache.Get(id); found {
		if p, ok := value.(*Plan); ok {
			return p.Clone(), nil
		}
	}

	p, err := c.backend.Get(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	c.cache.SetDefault(id, p.Clone())
	return p, nil
}

// Flush empties the cache without touching the backend.
func (c *CachedStorage) Flush() {
	c.cache.Flush()
}

// Cached reports how many plans the cache holds, expired ones included
// until the next sweep.
func (c *CachedStorage) Cached() int {
	return c.cache.ItemCount()
}
