package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/lumehq/accountd/pkg/cachex"
)

// Cache is an in-process cachex.Cache. It backs tests and single-node dev
// deployments where no Redis is configured; revocation state kept here is
// lost on restart and not shared across nodes.
type Cache struct {
	mu    sync.Mutex
	items map[string]item

	stop chan struct{}
	once sync.Once
}

type item struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (i item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// New creates a memory cache and starts a janitor that sweeps expired keys.
func New() *Cache {
	c := &Cache{
		items: make(map[string]item),
		stop:  make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, it := range c.items {
				if it.expired(now) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || it.expired(time.Now()) {
		delete(c.items, key)
		return "", cachex.ErrNotFound
	}
	return it.value, nil
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.items[key] = item{value: value, expiresAt: expiresAt}
	return nil
}

func (c *Cache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

func (c *Cache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	it, ok := c.items[key]
	if !ok || it.expired(now) {
		// Fresh counters carry no expiry until the caller sets one.
		c.items[key] = item{value: "1"}
		return 1, nil
	}

	n, err := strconv.ParseInt(it.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	it.value = strconv.FormatInt(n, 10)
	c.items[key] = it
	return n, nil
}

func (c *Cache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || it.expired(time.Now()) {
		delete(c.items, key)
		return cachex.ErrNotFound
	}

	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	} else {
		it.expiresAt = time.Time{}
	}
	c.items[key] = it
	return nil
}

func (c *Cache) Ping(context.Context) error { return nil }

func (c *Cache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}
